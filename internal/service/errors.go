package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/metrics"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/store"
)

// FieldError names a request field that was rejected and why.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError is answered with 400 and lists every offending field.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Msg)
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

// newValidationError translates a binding error into field errors.
func newValidationError(err error) *ValidationError {
	var validationErrors validator.ValidationErrors
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &validationErrors):
		result := &ValidationError{}
		for _, fe := range validationErrors {
			field := strings.ToLower(fe.Field())
			result.Errors = append(result.Errors, FieldError{Field: field, Msg: fieldMessage(field, fe.Tag())})
		}
		return result
	case errors.As(err, &typeError) && typeError.Field != "":
		return &ValidationError{Errors: []FieldError{
			{Field: typeError.Field, Msg: fmt.Sprintf("%s must be a %s", typeError.Field, typeError.Type)},
		}}
	default:
		return &ValidationError{Errors: []FieldError{{Field: "body", Msg: "invalid JSON"}}}
	}
}

func fieldMessage(field string, tag string) string {
	switch tag {
	case "required", "notblank":
		return field + " is required"
	default:
		return field + " is invalid"
	}
}

func respondValidation(c *gin.Context, err *ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, err)
}

// respondMessage answers with the {"msg": ...} body used by all other responses.
func respondMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"msg": msg})
}

// respondStoreError maps store errors to client rejections. Everything else is logged and
// answered with a generic internal failure.
func (h *handler) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "contact not found")
	case errors.Is(err, store.ErrNotOwner):
		respondMessage(c, http.StatusUnauthorized, "not authorized")
	default:
		metrics.StoreFailures.Inc()
		h.log.Error("store failure",
			"error", fmt.Sprintf("%+v", err),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
		)
		respondMessage(c, http.StatusInternalServerError, "server error")
	}
}
