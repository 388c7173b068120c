package handlers

import (
	"database/sql"
	"time"

	"trackcrm/internal/authz"
	"trackcrm/internal/config"
	"trackcrm/internal/middleware"
	"trackcrm/internal/models"
	"trackcrm/internal/websocket"
	"trackcrm/pkg/database"
	"trackcrm/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Task handlers. Tasks live under a project; the parent project's track
// drives the track rule for every task operation.

// parseDueDate accepts a plain date or a full timestamp.
func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	due, err := time.Parse("2006-01-02", raw)
	if err != nil {
		due, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, err
		}
	}
	return &due, nil
}

// taskParent resolves a task's parent project and that project's track,
// checking the task really belongs to the project in the URL.
func taskParent(taskID, projectID int) (string, error) {
	ctx, cancel := database.QueryContext()
	defer cancel()
	var track string
	err := config.DB.QueryRowContext(ctx, `
		SELECT p.track FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND t.project_id = $2`,
		taskID, projectID).Scan(&track)
	return track, err
}

func CreateTask(c *fiber.Ctx) error {
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

	type TaskRequest struct {
		Title       string  `json:"title" validate:"required"`
		Description *string `json:"description"`
		Status      string  `json:"status" validate:"omitempty,status"`
		DueDate     string  `json:"due_date"`
		Weight      *int    `json:"weight" validate:"omitempty,min=1,max=10"`
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	if req.Status == "" {
		req.Status = models.StatusPending
	}
	weight := 1
	if req.Weight != nil {
		weight = *req.Weight
	}

	// Authorization must be settled before anything touches storage.
	// Creating a task directly as completed needs the completion capability.
	op := authz.OpCreateTask
	if req.Status == models.StatusCompleted {
		op = authz.OpCompleteTask
	}
	if err := authz.Authorize(id, op, track); err != nil {
		logger.SecurityLogger.Warn("Forbidden task create",
			zap.Int("user_id", id.UserID), zap.String("role", id.Role),
			zap.String("caller_track", id.Track), zap.String("project_track", track))
		return respondAuthzError(c, err)
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		logger.ErrorLogger.Error("Invalid due date", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid due date",
			"success": false,
			"status":  400,
		})
	}

	ctx, cancel := database.QueryContext()
	defer cancel()
	var taskID int
	err = config.DB.QueryRowContext(ctx,
		"INSERT INTO tasks (project_id, title, description, status, due_date, weight) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		projectID, req.Title, req.Description, req.Status, dueDate, weight,
	).Scan(&taskID)
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error creating task", err),
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, projectCacheKey(projectID))
	websocket.BroadcastEvent("task_created", track, taskID)
	logger.AuditLogger.Info("Task created successfully",
		zap.Int("task_id", taskID), zap.Int("project_id", projectID), zap.Int("user_id", id.UserID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Task created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id": taskID,
		},
	})
}

func UpdateTask(c *fiber.Ctx) error {
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
	taskID, err := c.ParamsInt("taskId")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	track, err := taskParent(taskID, projectID)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching task", err),
			"success": false,
			"status":  500,
		})
	}

	type UpdateTaskRequest struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status" validate:"omitempty,status"`
		DueDate     *string `json:"due_date"`
		Weight      *int    `json:"weight" validate:"omitempty,min=1,max=10"`
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	op := authz.OpUpdateTask
	if req.Status != nil && *req.Status == models.StatusCompleted {
		op = authz.OpCompleteTask
	}
	if err := authz.Authorize(id, op, track); err != nil {
		logger.SecurityLogger.Warn("Forbidden task update",
			zap.Int("user_id", id.UserID), zap.String("role", id.Role), zap.Int("task_id", taskID))
		return respondAuthzError(c, err)
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		dueDate, err = parseDueDate(*req.DueDate)
		if err != nil {
			logger.ErrorLogger.Error("Invalid due date", zap.Error(err))
			return c.Status(400).JSON(fiber.Map{
				"message": "Invalid due date",
				"success": false,
				"status":  400,
			})
		}
	}

	ctx, cancel := database.QueryContext()
	defer cancel()
	_, err = config.DB.ExecContext(ctx, `
		UPDATE tasks
		SET title = COALESCE(NULLIF($1, ''), title),
			description = COALESCE($2, description),
			status = COALESCE(NULLIF($3, ''), status),
			due_date = COALESCE($4, due_date),
			weight = COALESCE($5, weight),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $6`,
		req.Title, req.Description, req.Status, dueDate, req.Weight, taskID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error updating task", err),
			"success": false,
			"status":  500,
		})
	}

	var updatedTask models.Task
	err = config.DB.QueryRowContext(ctx,
		"SELECT id, project_id, title, description, status, due_date, weight, created_at, updated_at FROM tasks WHERE id = $1",
		taskID,
	).Scan(&updatedTask.ID, &updatedTask.ProjectID, &updatedTask.Title, &updatedTask.Description, &updatedTask.Status, &updatedTask.DueDate, &updatedTask.Weight, &updatedTask.CreatedAt, &updatedTask.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching updated task", err),
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, projectCacheKey(projectID))
	if updatedTask.Status == models.StatusCompleted {
		websocket.BroadcastEvent("task_completed", track, taskID)
	} else {
		websocket.BroadcastEvent("task_updated", track, taskID)
	}
	logger.AuditLogger.Info("Task updated", zap.Int("task_id", taskID), zap.Int("user_id", id.UserID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Task updated successfully",
		"success": true,
		"status":  200,
		"data":    updatedTask,
	})
}

func DeleteTask(c *fiber.Ctx) error {
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
	taskID, err := c.ParamsInt("taskId")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	track, err := taskParent(taskID, projectID)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching task", err),
			"success": false,
			"status":  500,
		})
	}

	if err := authz.Authorize(id, authz.OpDeleteTask, track); err != nil {
		logger.SecurityLogger.Warn("Forbidden task delete",
			zap.Int("user_id", id.UserID), zap.String("role", id.Role), zap.Int("task_id", taskID))
		return respondAuthzError(c, err)
	}

	ctx, cancel := database.QueryContext()
	defer cancel()
	_, err = config.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", taskID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error deleting task", err),
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, projectCacheKey(projectID))
	websocket.BroadcastEvent("task_deleted", track, taskID)
	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", taskID), zap.Int("user_id", id.UserID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Task deleted successfully",
		"success": true,
		"status":  200,
	})
}
