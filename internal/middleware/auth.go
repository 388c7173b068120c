package middleware

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"trackcrm/internal/authz"
	"trackcrm/internal/config"
	"trackcrm/pkg/database"
	"trackcrm/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

const identityKey = "identity"

// UseToken validates the bearer token and resolves the caller into a typed
// authz.Identity. The token only establishes who is calling; role and track
// are re-read from the users table so storage stays the source of truth.
func UseToken(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthenticated(c, "No token provided")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return unauthenticated(c, "Invalid token format")
	}
	return authenticate(c, parts[1])
}

// UseTokenQuery authenticates from a ?token= query parameter. Browsers cannot
// set headers on websocket dials, so the activity feed uses this variant.
func UseTokenQuery(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		return unauthenticated(c, "No token provided")
	}
	return authenticate(c, tokenString)
}

func authenticate(c *fiber.Ctx, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.SecretKey, nil
	})
	if err != nil || !token.Valid {
		return unauthenticated(c, "Invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return unauthenticated(c, "Invalid token claims")
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return unauthenticated(c, "Token expired")
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return unauthenticated(c, "Invalid user ID in token")
	}
	if _, ok := claims["role"].(string); !ok {
		return unauthenticated(c, "Invalid role in token")
	}

	// Fresh lookup: the embedded role claim is deliberately not trusted for
	// authorization, only required to be present.
	id := authz.Identity{UserID: int(userID)}
	ctx, cancel := database.QueryContext()
	defer cancel()
	err = config.DB.QueryRowContext(ctx,
		"SELECT role, track FROM users WHERE id = $1", id.UserID,
	).Scan(&id.Role, &id.Track)
	if err == sql.ErrNoRows {
		logger.SecurityLogger.Warn("Token for unknown user", zap.Int("user_id", id.UserID))
		return unauthenticated(c, "Invalid token")
	}
	if err != nil {
		logger.ErrorLogger.Error("Error resolving caller", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Service unavailable",
			"success": false,
			"status":  500,
		})
	}

	c.Locals(identityKey, id)
	return c.Next()
}

// CallerIdentity returns the identity stored by UseToken. Only valid behind
// the token middleware.
func CallerIdentity(c *fiber.Ctx) authz.Identity {
	return c.Locals(identityKey).(authz.Identity)
}

func unauthenticated(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": msg,
		"success": false,
		"status":  fiber.StatusUnauthorized,
	})
}
