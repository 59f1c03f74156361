package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h(c)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestSuccess(t *testing.T) {
	w, body := run(t, func(c *gin.Context) { Success(c, map[string]int{"total": 3}) })

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Nil(t, body.Error)
	assert.Equal(t, map[string]any{"total": float64(3)}, body.Data)
}

func TestFailDerivesCode(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, CodeBadRequest},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusServiceUnavailable, CodeServiceUnavailable},
		{http.StatusTeapot, CodeInternalError},
	}
	for _, tt := range tests {
		w, body := run(t, func(c *gin.Context) { Fail(c, tt.status, "nope") })
		assert.Equal(t, tt.status, w.Code)
		assert.False(t, body.Success)
		require.NotNil(t, body.Error)
		assert.Equal(t, tt.code, body.Error.Code)
		assert.Equal(t, "nope", body.Error.Message)
	}
}

func TestTooManyRequestsRoundsRetryAfterUp(t *testing.T) {
	w, body := run(t, func(c *gin.Context) { TooManyRequests(c, "slow down", 1500*time.Millisecond) })

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, CodeRateLimited, body.Error.Code)

	w, _ = run(t, func(c *gin.Context) { TooManyRequests(c, "slow down", 0) })
	assert.Empty(t, w.Header().Get("Retry-After"))
}
