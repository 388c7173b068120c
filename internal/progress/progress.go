package progress

import (
	"math"

	"trackcrm/internal/models"
)

// Project classification driven by progress.
const (
	StatusActive    = "Active"
	StatusCompleted = "Completed"
)

// Calculate returns the weighted completion percentage of a task collection,
// rounded to the nearest integer. A project with no tasks is 0, not 100.
func Calculate(tasks []models.Task) int {
	var total, done int
	for _, t := range tasks {
		w := t.Weight
		if w == 0 {
			w = 1
		}
		total += w
		if t.Status == models.StatusCompleted {
			done += w
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// Classify labels a project Completed only at 100%; everything else,
// including the zero-task case, is Active.
func Classify(pct int) string {
	if pct == 100 {
		return StatusCompleted
	}
	return StatusActive
}
