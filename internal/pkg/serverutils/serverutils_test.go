package serverutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/pkg/access"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestErrorHandlerMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("append: %w", apperror.ErrSessionClosed), http.StatusConflict},
		{apperror.ErrInvalidTransition, http.StatusConflict},
		{fmt.Errorf("escalation x: %w", apperror.ErrAlreadyAssigned), http.StatusConflict},
		{apperror.ErrForbidden, http.StatusForbidden},
		{apperror.ErrNotFound, http.StatusNotFound},
		{apperror.ErrUpstreamUnavailable, http.StatusBadGateway},
		{apperror.ErrInvalidInput, http.StatusBadRequest},
		{fiber.NewError(http.StatusUnauthorized, "nope"), http.StatusUnauthorized},
		{fmt.Errorf("database is on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
			app.Get("/", func(ctx *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body Response[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", body.Message)
			}
		})
	}
}

func TestJwtMiddleware(t *testing.T) {
	userId, orgId := uuid.New(), uuid.New()

	app := fiber.New()
	app.Use(NewJwtMiddleware(testSecret))
	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(CallerFrom(ctx))
	})

	valid := signToken(t, jwt.MapClaims{"user_id": userId.String(), "org_id": orgId.String(), "role": "staff"})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var caller access.Caller
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&caller))
		assert.Equal(t, userId, caller.UserId)
		assert.Equal(t, orgId, caller.OrganizationId)
		assert.Equal(t, "staff", caller.Role)
	})

	t.Run("only the caller is stored", func(t *testing.T) {
		locals := fiber.New()
		locals.Use(NewJwtMiddleware(testSecret))
		locals.Get("/", func(ctx *fiber.Ctx) error {
			assert.Nil(t, ctx.Locals("user_id"))
			assert.Equal(t, userId, CallerFrom(ctx).UserId)
			return ctx.SendStatus(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+valid)
		resp, err := locals.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("query token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?token="+valid, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": userId.String(), "org_id": orgId.String(), "role": "staff",
		}).SignedString([]byte("other"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing org claim", func(t *testing.T) {
		token := signToken(t, jwt.MapClaims{"user_id": userId.String(), "role": "staff"})
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/?token="+token, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Body     string `validate:"required"`
		Priority string `validate:"omitempty,oneof=low medium high"`
	}

	assert.NoError(t, ValidateRequest(req{Body: "hi"}))
	assert.ErrorIs(t, ValidateRequest(req{}), apperror.ErrInvalidInput)

	err := ValidateRequest(req{Body: "hi", Priority: "urgent"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Contains(t, err.Error(), "priority failed on 'oneof'")
}

func TestIssueTokenRoundTrip(t *testing.T) {
	caller := access.Caller{UserId: uuid.New(), OrganizationId: uuid.New(), Role: "patient"}

	token, err := IssueToken(caller, testSecret, time.Hour)
	require.NoError(t, err)

	parsed, err := ParseCaller(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, caller, parsed)

	expired, err := IssueToken(caller, testSecret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseCaller(expired, testSecret)
	assert.Error(t, err)
}
