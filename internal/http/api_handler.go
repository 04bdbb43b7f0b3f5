package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authkit/internal/plugin/core"
	"authkit/internal/plugin/otp"
	"authkit/internal/repository"
	"authkit/internal/server"
	"authkit/internal/token"
)

const maxPayloadBytes = 1 << 20

// APIHandler expone el arbol de API del servidor sobre HTTP.
type APIHandler struct {
	logger *zap.Logger
	srv    *server.Server
}

func NewAPIHandler(logger *zap.Logger, srv *server.Server) *APIHandler {
	return &APIHandler{logger: logger, srv: srv}
}

// List maneja GET /api.
func (h *APIHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apis": h.srv.API().Paths()})
}

// Call maneja POST /api/*path. Acepta "otp.send" y "otp/send".
func (h *APIHandler) Call(c *gin.Context) {
	path := strings.ReplaceAll(strings.Trim(c.Param("path"), "/"), "/", ".")

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Warn("invalid api request", zap.Error(err), zap.String("api", path))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": repository.CodeInvalidInput})
		return
	}
	if len(payload) > 0 && !json.Valid(payload) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not valid json", "code": repository.CodeInvalidInput})
		return
	}

	result, err := h.srv.Call(c.Request.Context(), path, payload)
	if err != nil {
		h.writeError(c, path, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *APIHandler) writeError(c *gin.Context, path string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("api call failed", zap.Error(err), zap.String("api", path))
		msg := "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "backend unavailable"
		}
		c.JSON(status, gin.H{"error": msg, "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// statusFor traduce un error de handler a status HTTP y codigo estable.
func statusFor(err error) (int, string) {
	var repoErr *repository.Error
	if errors.As(err, &repoErr) {
		switch repoErr.Code {
		case repository.CodeInvalidInput:
			return http.StatusBadRequest, string(repoErr.Code)
		case repository.CodeNotFound:
			return http.StatusNotFound, string(repoErr.Code)
		case repository.CodeUniqueViolation:
			return http.StatusConflict, string(repoErr.Code)
		case repository.CodeConnectionFailed:
			return http.StatusServiceUnavailable, string(repoErr.Code)
		default:
			return http.StatusInternalServerError, string(repository.CodeUnknown)
		}
	}
	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid-credentials"
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, token.ErrExpired):
		return http.StatusUnauthorized, "token-expired"
	case errors.Is(err, token.ErrInvalid):
		return http.StatusUnauthorized, "token-invalid"
	case errors.Is(err, otp.ErrRateLimited):
		return http.StatusTooManyRequests, "rate-limited"
	case errors.Is(err, otp.ErrExpired):
		return http.StatusBadRequest, "otp-expired"
	case errors.Is(err, otp.ErrInvalidated):
		return http.StatusBadRequest, "otp-invalidated"
	case errors.Is(err, otp.ErrTooManyAttempts):
		return http.StatusBadRequest, "otp-attempts-exhausted"
	default:
		return http.StatusInternalServerError, string(repository.CodeUnknown)
	}
}
