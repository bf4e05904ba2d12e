package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
	"github.com/turtacn/MedKG-Intelligence/pkg/types/medical"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondError maps err onto its transport status.  Server-side failures
// are masked; client errors carry their message and detail.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown || code == errors.CodeOK {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)
	_ = c.Error(err)

	msg := errors.DefaultMessageForCode(code)
	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		msg = clientMessage(err, msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: string(code), Message: msg})
}

func clientMessage(err error, fallback string) string {
	var ae *errors.AppError
	if !stderrors.As(err, &ae) || ae.Message == "" {
		return fallback
	}
	if ae.Detail != "" {
		return ae.Message + ": " + ae.Detail
	}
	return ae.Message
}

// ─────────────────────────────────────────────────────────────────────────────
// Parameter parsing
// ─────────────────────────────────────────────────────────────────────────────

func entityTypeParam(c *gin.Context, key string) (medical.EntityType, error) {
	t, err := medical.ParseEntityType(c.Query(key))
	if err != nil {
		return medical.EntityAny, errors.MalformedInput("invalid " + key).WithDetail(c.Query(key))
	}
	return t, nil
}

// The relation vocabulary is open; an empty value matches every type.
func relationTypeParam(c *gin.Context, key string) medical.RelationType {
	return medical.RelationType(strings.TrimSpace(c.Query(key)))
}

// boolParam returns def when key is absent.
func boolParam(c *gin.Context, key string, def bool) (bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, errors.MalformedInput("invalid " + key).WithDetail(raw)
	}
	return v, nil
}

// intParam returns def when key is absent.
func intParam(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, errors.MalformedInput("invalid " + key).WithDetail(raw)
	}
	return v, nil
}

//Personal.AI order the ending
