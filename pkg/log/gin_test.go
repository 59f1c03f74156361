package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, status int, header string) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var buf bytes.Buffer
	r := gin.New()
	r.Use(GinMiddleware(New(Config{Level: "debug", Output: &buf})))
	r.GET("/search", func(c *gin.Context) {
		c.Set(FieldCaller, "ip:192.0.2.1")
		l := Ctx(c.Request.Context())
		l.Debug().Msg("inside handler")
		c.Status(status)
	})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	if header != "" {
		req.Header.Set(HeaderRequestID, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"message":"inside handler"`)

	var access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))
	return access, w
}

func TestGinMiddlewareAccessLine(t *testing.T) {
	access, w := serve(t, http.StatusOK, "req-123")

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "req-123", access[FieldRequestID])
	assert.Equal(t, "info", access["level"])
	assert.Equal(t, "/search", access[FieldPath])
	assert.Equal(t, "ip:192.0.2.1", access[FieldCaller])
	assert.EqualValues(t, 200, access[FieldStatus])
	assert.NotContains(t, access, FieldUserID)
}

func TestGinMiddlewareLevelByStatus(t *testing.T) {
	access, w := serve(t, http.StatusTooManyRequests, "")
	assert.Equal(t, "warn", access["level"])
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	access, _ = serve(t, http.StatusServiceUnavailable, "")
	assert.Equal(t, "error", access["level"])
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	access, _ := serve(t, http.StatusOK, strings.Repeat("x", 200))
	assert.Len(t, access[FieldRequestID], 36)
}
