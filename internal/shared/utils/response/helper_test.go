package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"seatflow/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) StandardApiResponse {
	t.Helper()
	var body StandardApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondErrorUsesKindStatus(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := fmt.Errorf("checkout: %w", apperrors.Conflict("seat 2:1 is no longer held (free)").
		WithDetails(map[string]interface{}{"row": 2, "column": 1}))
	RespondError(c, err)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "checkout: seat 2:1 is no longer held (free)", body.Message)
	assert.NotNil(t, body.Errors)
}

func TestRespondErrorHidesUnclassified(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w).Message)
}

func TestRespondErrorInternalShowsMessageOnly(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, apperrors.Internal(errors.New("pq: deadlock"), "failed to save sale"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to save sale", decode(t, w).Message)
}
