package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Capacity changes must go through the capacity endpoint, which promotes
// waitlisted users under the event row lock. A PUT carrying a capacity
// field is rejected before any database access.
func TestUpdateRejectsCapacityEdits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil, zap.NewNop())
	router := gin.New()
	router.PUT("/events/:id", h.Update)

	body := `{"title":"Tech Talk","starts_at":"2026-10-01T10:00:00Z","visibility":"public","capacity":25}`
	req := httptest.NewRequest(http.MethodPut, "/events/"+uuid.NewString(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "PATCH /events/:id/capacity")
}
