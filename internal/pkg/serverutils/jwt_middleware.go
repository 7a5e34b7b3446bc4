package serverutils

import (
	"fmt"
	"strings"
	"time"

	"clinic-chat-be/pkg/access"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const callerLocal = "caller"

// ParseCaller validates a token and extracts the caller claims.
func ParseCaller(tokenStr, secret string) (access.Caller, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return access.Caller{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return access.Caller{}, fmt.Errorf("invalid claims")
	}

	userId, err := uuid.Parse(fmt.Sprint(claims["user_id"]))
	if err != nil {
		return access.Caller{}, fmt.Errorf("invalid user_id claim")
	}
	orgId, err := uuid.Parse(fmt.Sprint(claims["org_id"]))
	if err != nil {
		return access.Caller{}, fmt.Errorf("invalid org_id claim")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return access.Caller{}, fmt.Errorf("missing role claim")
	}

	return access.Caller{UserId: userId, OrganizationId: orgId, Role: role}, nil
}

// IssueToken signs a caller token. Used by the seed CLI and tests; production
// tokens come from the identity service.
func IssueToken(caller access.Caller, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": caller.UserId.String(),
		"org_id":  caller.OrganizationId.String(),
		"role":    caller.Role,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// TokenFromRequest reads a bearer header, falling back to the token query
// parameter used by browser websocket clients.
func TokenFromRequest(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return authHeader[7:]
	}
	return ctx.Query("token")
}

func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := TokenFromRequest(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		caller, err := ParseCaller(tokenStr, secret)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, err.Error()))
		}

		ctx.Locals(callerLocal, caller)
		return ctx.Next()
	}
}

// CallerFrom returns the caller stored by the JWT middleware.
func CallerFrom(ctx *fiber.Ctx) access.Caller {
	caller, _ := ctx.Locals(callerLocal).(access.Caller)
	return caller
}
