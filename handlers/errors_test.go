package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/normatel/norahub/authz"
)

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", authz.ErrInvalidInput, http.StatusBadRequest},
		{"wrapped invalid input", fmt.Errorf("%w: field missing", authz.ErrInvalidInput), http.StatusBadRequest},
		{"forbidden", authz.ErrForbidden, http.StatusForbidden},
		{"pending approval", authz.ErrPendingApproval, http.StatusForbidden},
		{"not found", authz.ErrNotFound, http.StatusNotFound},
		{"conflict", authz.ErrConflict, http.StatusConflict},
		{"already exists", authz.ErrAlreadyExists, http.StatusConflict},
		{"cargo in use", authz.ErrCargoInUse, http.StatusConflict},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondError(c, tt.err)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

// Permission denials must never degrade into not-found: the two statuses are
// how the frontend distinguishes "hidden from you" from "gone"
func TestRespondError_ForbiddenIsNotNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, fmt.Errorf("delete user: %w", authz.ErrForbidden))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEqual(t, http.StatusNotFound, w.Code)
}
