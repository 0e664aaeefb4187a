// Package handler adapts the services to HTTP. Every handler is an error
// boundary: typed failures map to their status, anything else is logged and
// answered with a generic message.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
	"taskhub/pkg/logger"
	"taskhub/pkg/util"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	principalKey = "principal"
	tokenIDKey   = "token_id"
)

// SetPrincipal stores the authenticated user and the id of the token the
// request carried.
func SetPrincipal(c *gin.Context, user *model.User, tokenID string) {
	c.Set(principalKey, user)
	c.Set(tokenIDKey, tokenID)
}

// Principal returns the authenticated user, nil on public routes.
func Principal(c *gin.Context) *model.User {
	if v, ok := c.Get(principalKey); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

func TokenID(c *gin.Context) string {
	return c.GetString(tokenIDKey)
}

func success(c *gin.Context, code int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["status"] = StatusSuccess
	c.JSON(code, body)
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"status":  StatusError,
		"message": message,
	})
}

// WriteError maps err to its status. Unexpected errors are logged with the
// request's trace id and answered with fallback.
func WriteError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindUnexpected {
		_, errorType := util.ClassifyError(err)
		logger.WithTrace(c.Request.Context(), log).Error(fallback,
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("error_type", errorType),
			zap.Error(err),
		)
		Abort(c, http.StatusInternalServerError, fallback)
		return
	}

	body := gin.H{
		"status":  StatusError,
		"message": e.Message,
	}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}
	c.AbortWithStatusJSON(e.Kind.Status(), body)
}

// bindJSON decodes the body into dst. An empty body leaves dst untouched;
// undecodable JSON is a validation failure.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperr.FieldInvalid(typeErr.Field, fmt.Sprintf("The %s field is invalid.", typeErr.Field))
	}
	return apperr.Validation(nil)
}

// parseID reads the :id path parameter. Anything that is not a positive
// integer cannot name a row and is answered with 404.
func parseID(c *gin.Context, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		Abort(c, http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}
