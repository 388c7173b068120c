package handlers

import (
	"database/sql"
	"time"

	"trackcrm/internal/config"
	"trackcrm/internal/middleware"
	"trackcrm/internal/models"
	"trackcrm/pkg/database"
	"trackcrm/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Auth handlers
func Register(c *fiber.Ctx) error {
	type RegisterRequest struct {
		Username string `json:"username" validate:"required,excludesall=@?"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Role     string `json:"role" validate:"omitempty,role"`
		Track    string `json:"track" validate:"required,track"`
	}

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Registration defaults to the least privileged managing role and never
	// hands out president; that account is seeded.
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if req.Role == models.RolePresident {
		logger.SecurityLogger.Warn("Attempt to register president role", zap.String("email", req.Email))
		return c.Status(400).JSON(fiber.Map{
			"message": "Role not available at registration",
			"success": false,
			"status":  400,
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error hashing password",
			"success": false,
			"status":  500,
		})
	}

	ctx, cancel := database.QueryContext()
	defer cancel()
	var userID int
	err = config.DB.QueryRowContext(ctx,
		"INSERT INTO users (username, email, password, role, track) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		req.Username, req.Email, string(hashedPassword), req.Role, req.Track).Scan(&userID)
	if err != nil {
		// 23505 is the unique violation code; username or email is taken
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				logger.SecurityLogger.Warn("Duplicate username or email", zap.String("username", req.Username))
				return c.Status(409).JSON(fiber.Map{
					"message": "Username or email already exists",
					"success": false,
					"status":  409,
				})
			}
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating user",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("User registered successfully", zap.Int("userID", userID), zap.String("role", req.Role), zap.String("track", req.Track))
	return c.Status(201).JSON(fiber.Map{
		"message": "User created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id": userID,
		},
	})
}

func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	var user struct {
		ID       int
		Username string
		Email    string
		Password string
		Role     string
		Track    string
	}

	ctx, cancel := database.QueryContext()
	defer cancel()
	err := config.DB.QueryRowContext(ctx,
		"SELECT id, username, email, password, role, track FROM users WHERE email = $1",
		req.Email).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Role, &user.Track)
	if err == sql.ErrNoRows {
		logger.SecurityLogger.Warn("User not found", zap.String("email", req.Email))
		return c.Status(401).JSON(fiber.Map{
			"message": "Invalid credentials",
			"success": false,
			"status":  401,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching user for login", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching user", err),
			"success": false,
			"status":  500,
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.SecurityLogger.Warn("Invalid password", zap.String("email", req.Email))
		return c.Status(401).JSON(fiber.Map{
			"message": "Invalid credentials",
			"success": false,
			"status":  401,
		})
	}

	// The token carries identity and the role claim; authorization reads
	// role and track fresh from storage on every request.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(time.Hour * 1).Unix(),
	})

	tokenString, err := token.SignedString(config.SecretKey)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating token",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID), zap.String("role", user.Role))
	return c.JSON(fiber.Map{
		"message": "Login success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id": user.ID,
			"role":    user.Role,
			"track":   user.Track,
			"token":   tokenString,
		},
	})
}

// Profile returns the authenticated caller's own record.
func Profile(c *fiber.Ctx) error {
	id := middleware.CallerIdentity(c)

	var user models.User
	ctx, cancel := database.QueryContext()
	defer cancel()
	err := config.DB.QueryRowContext(ctx,
		"SELECT id, username, email, role, track, profile_picture, created_at, updated_at FROM users WHERE id = $1",
		id.UserID).Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.Track, &user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching profile", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": storeErrorMessage("Error fetching profile", err),
			"success": false,
			"status":  500,
		})
	}

	if !user.ProfilePicture.Valid {
		user.ProfilePicture.String = ""
	}

	return c.JSON(fiber.Map{
		"message": "Profile fetched successfully",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id":         user.ID,
			"username":        user.Username,
			"email":           user.Email,
			"role":            user.Role,
			"track":           user.Track,
			"profile_picture": user.ProfilePicture.String,
			"created_at":      user.CreatedAt,
		},
	})
}
