package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  NotFound("lieux", "l1"),
			want: "NOT_FOUND: lieux/l1 not found",
		},
		{
			name: "with wrapped error",
			err:  StoreOperation("insert", fmt.Errorf("connection reset")),
			want: "STORE_OPERATION_FAILED: insert failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAsAndIs(t *testing.T) {
	inner := errors.New("timeout")
	wrapped := fmt.Errorf("create contact: %w", StoreOperation("insert", inner))

	ae, ok := As(wrapped)
	require.True(t, ok)
	require.Equal(t, CodeStoreOperation, ae.Code)
	require.True(t, errors.Is(wrapped, inner))
	require.True(t, Is(wrapped, CodeStoreOperation))
	require.False(t, Is(inner, CodeStoreOperation))
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", Validation([]FieldError{{Field: "nom", Message: "required"}}), http.StatusUnprocessableEntity, CodeValidationFailed},
		{"conflict", RelationConflict("lieux", "l1", []string{"dates"}), http.StatusConflict, CodeRelationConflict},
		{"store", StoreOperation("find", errors.New("down")), http.StatusServiceUnavailable, CodeStoreOperation},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Respond(c, tt.err)
			require.Equal(t, tt.status, w.Code)

			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.code, body.Error.Code)
		})
	}
}
