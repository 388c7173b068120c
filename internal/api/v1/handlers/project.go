package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"trackcrm/internal/authz"
	"trackcrm/internal/config"
	"trackcrm/internal/middleware"
	"trackcrm/internal/models"
	"trackcrm/internal/progress"
	"trackcrm/internal/websocket"
	"trackcrm/pkg/crypto"
	"trackcrm/pkg/database"
	"trackcrm/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Project handlers

func projectCacheKey(projectID int) string {
	return fmt.Sprintf("project:%d", projectID)
}

// loadTasks fetches a project's tasks ordered by creation.
func loadTasks(projectID int) ([]models.Task, error) {
	ctx, cancel := database.QueryContext()
	defer cancel()
	rows, err := config.DB.QueryContext(ctx,
		"SELECT id, project_id, title, description, status, due_date, weight, created_at, updated_at FROM tasks WHERE project_id = $1 ORDER BY id",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := rows.Scan(&task.ID, &task.ProjectID, &task.Title, &task.Description, &task.Status, &task.DueDate, &task.Weight, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// projectTrack resolves the track a project belongs to, for the track rule.
func projectTrack(projectID int) (string, error) {
	ctx, cancel := database.QueryContext()
	defer cancel()
	var track string
	err := config.DB.QueryRowContext(ctx,
		"SELECT track FROM projects WHERE id = $1", projectID).Scan(&track)
	return track, err
}

func CreateProject(c *fiber.Ctx) error {
	id := middleware.CallerIdentity(c)

	type ProjectRequest struct {
		Name          string  `json:"name" validate:"required"`
		Client        string  `json:"client" validate:"required"`
		Description   *string `json:"description"`
		ClientContact string  `json:"client_contact"`
		Track         string  `json:"track" validate:"omitempty,track"`
	}

	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create project", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create project", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Omitted track falls back to the caller's own; an explicit foreign
	// track only passes authorization for the president.
	track := authz.CreationTrack(id, req.Track)
	if err := authz.Authorize(id, authz.OpCreateProject, track); err != nil {
		logger.SecurityLogger.Warn("Forbidden project create",
			zap.Int("user_id", id.UserID), zap.String("role", id.Role),
			zap.String("caller_track", id.Track), zap.String("project_track", track))
		return respondAuthzError(c, err)
	}

	encryptedContact := ""
	if req.ClientContact != "" {
		var err error
		encryptedContact, err = crypto.Encrypt(req.ClientContact, config.Cfg.EncryptionKey)
		if err != nil {
			logger.ErrorLogger.Error("Error encrypting client contact", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error encrypting client contact",
				"success": false,
				"status":  500,
			})
		}
	}

	ctx, cancel := database.QueryContext()
	defer cancel()
	var projectID int
	err := config.DB.QueryRowContext(ctx,
		"INSERT INTO projects (name, client, description, client_contact, track) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		req.Name, req.Client, req.Description, encryptedContact, track,
	).Scan(&projectID)
	if err != nil {
		logger.ErrorLogger.Error("Error creating project", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error creating project", err),
			"success": false,
			"status":  500,
		})
	}

	websocket.BroadcastEvent("project_created", track, projectID)
	logger.AuditLogger.Info("Project created successfully",
		zap.Int("project_id", projectID), zap.String("track", track), zap.Int("user_id", id.UserID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Project created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id":    projectID,
			"track": track,
		},
	})
}

func ListProjects(c *fiber.Ctx) error {
	id := middleware.CallerIdentity(c)

	// view-all gates listing at all; the president additionally sees every
	// track, everyone else only their own.
	if err := authz.Authorize(id, authz.OpReadProject, id.Track); err != nil {
		logger.SecurityLogger.Warn("Forbidden project list", zap.Int("user_id", id.UserID), zap.String("role", id.Role))
		return respondAuthzError(c, err)
	}
	caps, _ := authz.CapabilitiesFor(id.Role)

	ctx, cancel := database.QueryContext()
	defer cancel()
	var rows *sql.Rows
	var err error
	if caps.TrackExempt() {
		rows, err = config.DB.QueryContext(ctx,
			"SELECT id, name, client, description, client_contact, track, created_at, updated_at FROM projects ORDER BY id")
	} else {
		rows, err = config.DB.QueryContext(ctx,
			"SELECT id, name, client, description, client_contact, track, created_at, updated_at FROM projects WHERE track = $1 ORDER BY id",
			id.Track)
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching projects", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching projects", err),
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var project models.Project
		var contact sql.NullString
		err := rows.Scan(&project.ID, &project.Name, &project.Client, &project.Description, &contact, &project.Track, &project.CreatedAt, &project.UpdatedAt)
		if err != nil {
			logger.ErrorLogger.Error("Error scanning projects", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": storeErrorMessage("Error scanning projects", err),
				"success": false,
				"status":  500,
			})
		}
		if contact.Valid && contact.String != "" {
			project.ClientContact, err = crypto.Decrypt(contact.String, config.Cfg.EncryptionKey)
			if err != nil {
				logger.ErrorLogger.Error("Error decrypting client contact", zap.Error(err))
				return c.Status(500).JSON(fiber.Map{
					"message": "Error decrypting client contact",
					"success": false,
					"status":  500,
				})
			}
		}
		projects = append(projects, project)
	}
	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over projects", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error iterating over projects", err),
			"success": false,
			"status":  500,
		})
	}

	for i := range projects {
		tasks, err := loadTasks(projects[i].ID)
		if err != nil {
			logger.ErrorLogger.Error("Error fetching project tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": storeErrorMessage("Error fetching project tasks", err),
				"success": false,
				"status":  500,
			})
		}
		projects[i].Tasks = tasks
		projects[i].Progress = progress.Calculate(tasks)
		projects[i].Status = progress.Classify(projects[i].Progress)
	}

	logger.AuditLogger.Info("Projects fetched successfully", zap.Int("count", len(projects)))
	return c.JSON(fiber.Map{
		"message": "Projects fetched successfully",
		"success": true,
		"status":  200,
		"data":    projects,
	})
}

func GetProject(c *fiber.Ctx) error {
	id := middleware.CallerIdentity(c)

	projectID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid project ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project ID",
			"success": false,
			"status":  400,
		})
	}

	// Read-through cache; authorization still runs against the cached copy.
	cacheKey := projectCacheKey(projectID)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var project models.Project
		if err = json.Unmarshal([]byte(cached), &project); err == nil {
			if err := authz.Authorize(id, authz.OpReadProject, project.Track); err != nil {
				logger.SecurityLogger.Warn("Forbidden project read",
					zap.Int("user_id", id.UserID), zap.Int("project_id", projectID))
				return respondAuthzError(c, err)
			}
			logger.AuditLogger.Info("Project found (from cache)", zap.Int("project_id", projectID))
			return c.JSON(fiber.Map{
				"message": "Project found (from cache)",
				"success": true,
				"status":  200,
				"data":    project,
			})
		}
	}

	var project models.Project
	var contact sql.NullString
	ctx, cancel := database.QueryContext()
	defer cancel()
	err = config.DB.QueryRowContext(ctx,
		"SELECT id, name, client, description, client_contact, track, created_at, updated_at FROM projects WHERE id = $1",
		projectID).Scan(&project.ID, &project.Name, &project.Client, &project.Description, &contact, &project.Track, &project.CreatedAt, &project.UpdatedAt)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Project not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching project", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching project", err),
			"success": false,
			"status":  500,
		})
	}

	if err := authz.Authorize(id, authz.OpReadProject, project.Track); err != nil {
		logger.SecurityLogger.Warn("Forbidden project read",
			zap.Int("user_id", id.UserID), zap.Int("project_id", projectID))
		return respondAuthzError(c, err)
	}

	if contact.Valid && contact.String != "" {
		project.ClientContact, err = crypto.Decrypt(contact.String, config.Cfg.EncryptionKey)
		if err != nil {
			logger.ErrorLogger.Error("Error decrypting client contact", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error decrypting client contact",
				"success": false,
				"status":  500,
			})
		}
	}

	tasks, err := loadTasks(projectID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching project tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching project tasks", err),
			"success": false,
			"status":  500,
		})
	}
	project.Tasks = tasks
	project.Progress = progress.Calculate(tasks)
	project.Status = progress.Classify(project.Progress)

	if projectJSON, err := json.Marshal(project); err == nil {
		config.RedisClient.SetEX(config.Ctx, cacheKey, projectJSON, time.Hour)
	}

	logger.AuditLogger.Info("Project found", zap.Int("project_id", projectID))
	return c.JSON(fiber.Map{
		"message": "Project found",
		"success": true,
		"status":  200,
		"data":    project,
	})
}

func UpdateProject(c *fiber.Ctx) error {
	id := middleware.CallerIdentity(c)

	projectID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid project ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project ID",
			"success": false,
			"status":  400,
		})
	}

	track, err := projectTrack(projectID)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Project not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching project", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching project", err),
			"success": false,
			"status":  500,
		})
	}

	if err := authz.Authorize(id, authz.OpUpdateProject, track); err != nil {
		logger.SecurityLogger.Warn("Forbidden project update",
			zap.Int("user_id", id.UserID), zap.Int("project_id", projectID))
		return respondAuthzError(c, err)
	}

	type UpdateProjectRequest struct {
		Name          *string `json:"name"`
		Client        *string `json:"client"`
		Description   *string `json:"description"`
		ClientContact *string `json:"client_contact"`
		Track         *string `json:"track" validate:"omitempty,track"`
	}

	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update project", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in update project", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Moving a project between tracks needs authorization on the target too.
	if req.Track != nil && *req.Track != track {
		if err := authz.Authorize(id, authz.OpUpdateProject, *req.Track); err != nil {
			logger.SecurityLogger.Warn("Forbidden project track move",
				zap.Int("user_id", id.UserID), zap.Int("project_id", projectID), zap.String("target_track", *req.Track))
			return respondAuthzError(c, err)
		}
	}

	var encryptedContact string
	if req.ClientContact != nil {
		encryptedContact, err = crypto.Encrypt(*req.ClientContact, config.Cfg.EncryptionKey)
		if err != nil {
			logger.ErrorLogger.Error("Error encrypting client contact", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error encrypting client contact",
				"success": false,
				"status":  500,
			})
		}
	}

	ctx, cancel := database.QueryContext()
	defer cancel()
	_, err = config.DB.ExecContext(ctx, `
		UPDATE projects
		SET name = COALESCE(NULLIF($1, ''), name),
			client = COALESCE(NULLIF($2, ''), client),
			description = COALESCE($3, description),
			client_contact = COALESCE(NULLIF($4, ''), client_contact),
			track = COALESCE(NULLIF($5, ''), track),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $6`,
		req.Name, req.Client, req.Description, encryptedContact, req.Track, projectID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error updating project", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error updating project", err),
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, projectCacheKey(projectID))
	websocket.BroadcastEvent("project_updated", track, projectID)
	logger.AuditLogger.Info("Project updated", zap.Int("project_id", projectID), zap.Int("user_id", id.UserID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Project updated successfully",
		"success": true,
		"status":  200,
	})
}

func DeleteProject(c *fiber.Ctx) error {
	id := middleware.CallerIdentity(c)

	projectID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid project ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project ID",
			"success": false,
			"status":  400,
		})
	}

	track, err := projectTrack(projectID)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Project not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching project", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching project", err),
			"success": false,
			"status":  500,
		})
	}

	if err := authz.Authorize(id, authz.OpDeleteProject, track); err != nil {
		logger.SecurityLogger.Warn("Forbidden project delete",
			zap.Int("user_id", id.UserID), zap.Int("project_id", projectID))
		return respondAuthzError(c, err)
	}

	// Tasks go with the project via ON DELETE CASCADE.
	ctx, cancel := database.QueryContext()
	defer cancel()
	_, err = config.DB.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", projectID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting project", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error deleting project", err),
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, projectCacheKey(projectID))
	websocket.BroadcastEvent("project_deleted", track, projectID)
	logger.AuditLogger.Info("Project deleted", zap.Int("project_id", projectID), zap.Int("user_id", id.UserID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Project deleted successfully",
		"success": true,
		"status":  200,
	})
}
