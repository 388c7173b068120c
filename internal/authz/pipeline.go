package authz

import "errors"

// Identity is the authenticated caller, produced by the auth middleware and
// threaded through handlers via fiber Locals. Role and track are read fresh
// from storage on every request, so a track change never leaves a stale token
// with old scope.
type Identity struct {
	UserID int
	Role   string
	Track  string
}

// Terminal authorization outcomes. Handlers map these to 401 and 403; they
// are never downgraded or retried.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Operation names a protected store operation.
type Operation int

const (
	OpCreateProject Operation = iota
	OpReadProject
	OpUpdateProject
	OpDeleteProject
	OpCreateTask
	OpUpdateTask
	OpDeleteTask
	OpCompleteTask
)

// Authorize decides whether the caller may perform op on a resource in
// resourceTrack. The track rule is checked first: a non-exempt caller on a
// foreign track is Forbidden no matter which capabilities its role carries.
func Authorize(id Identity, op Operation, resourceTrack string) error {
	caps, ok := CapabilitiesFor(id.Role)
	if !ok {
		return ErrForbidden
	}

	if !caps.TrackExempt() && id.Track != resourceTrack {
		return ErrForbidden
	}

	switch op {
	case OpCreateProject, OpUpdateProject, OpDeleteProject:
		if caps.ManageAllProjects || caps.ManageTrackProjects {
			return nil
		}
	case OpCreateTask, OpUpdateTask, OpDeleteTask:
		if caps.ManageTrackProjects {
			return nil
		}
	case OpCompleteTask:
		// Completing is a task mutation plus the complete-projects capability.
		if caps.ManageTrackProjects && caps.CompleteProjects {
			return nil
		}
	case OpReadProject:
		if caps.ViewAll {
			return nil
		}
	}
	return ErrForbidden
}

// CreationTrack resolves the track a new project is created under: the
// requested one when given, otherwise the caller's own. An explicit foreign
// track still has to pass Authorize, so only the president can actually
// create outside their track.
func CreationTrack(id Identity, requested string) string {
	if requested != "" {
		return requested
	}
	return id.Track
}
