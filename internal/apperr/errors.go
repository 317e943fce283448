// Package apperr provides the application error taxonomy shared by the
// entity, relation and form layers, and its HTTP translation.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes.
const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeStoreOperation    = "STORE_OPERATION_FAILED"
	CodeRelationConflict  = "RELATION_CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeUnknownCollection = "UNKNOWN_COLLECTION"
	CodeBadRequest        = "BAD_REQUEST"
)

// AppError is a structured application error with HTTP status and error code.
type AppError struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	HTTPStatus  int                    `json:"-"`
	Params      map[string]interface{} `json:"params,omitempty"`
	FieldErrors []FieldError           `json:"fieldErrors,omitempty"`
	Err         error                  `json:"-"`
}

// FieldError describes a field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Validation builds a ValidationError from field errors.
func Validation(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:        CodeValidationFailed,
		Message:     "form contains invalid fields",
		HTTPStatus:  http.StatusUnprocessableEntity,
		FieldErrors: fieldErrors,
	}
}

// StoreOperation wraps a backing store failure (network, permission).
func StoreOperation(op string, err error) *AppError {
	return &AppError{
		Code:       CodeStoreOperation,
		Message:    op + " failed",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// RelationConflict reports a refused delete. blocking is serialised as-is
// under params.blockingRelations.
func RelationConflict(collection, id string, blocking interface{}) *AppError {
	return &AppError{
		Code:       CodeRelationConflict,
		Message:    fmt.Sprintf("%s/%s is referenced by other entities", collection, id),
		HTTPStatus: http.StatusConflict,
		Params:     map[string]interface{}{"blockingRelations": blocking},
	}
}

func NotFound(collection, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s/%s not found", collection, id),
		HTTPStatus: http.StatusNotFound,
	}
}

func UnknownCollection(collection string) *AppError {
	return &AppError{
		Code:       CodeUnknownCollection,
		Message:    "unknown collection " + collection,
		HTTPStatus: http.StatusNotFound,
	}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: msg, HTTPStatus: http.StatusBadRequest}
}

// As extracts an AppError from an error chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code string) bool {
	ae, ok := As(err)
	return ok && ae.Code == code
}

// Respond writes err as JSON. Errors outside the taxonomy become 500.
func Respond(c *gin.Context, err error) {
	ae, ok := As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "internal error"}})
		return
	}
	status := ae.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": ae})
}
