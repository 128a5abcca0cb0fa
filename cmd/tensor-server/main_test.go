package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotensor"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	eng, err := gotensor.NewEngine(gotensor.DefaultConfig(),
		gotensor.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return newRouter(eng)
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestToolEndpoint(t *testing.T) {
	r := testRouter(t)
	w := do(r, http.MethodPost, "/tool", `{"tool": "parse_tensor", "params": {"tensor": "T_{mn}"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp gotensor.ToolResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "T_{mn}", resp.String)
}

func TestToolEndpoint_BadRequest(t *testing.T) {
	r := testRouter(t)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tool", `{"tool": "sum", "extra": 1}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tool", `{"tool": "sum"} {}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/tool", `not json`).Code)
}

func TestSchemaHealthMetrics(t *testing.T) {
	r := testRouter(t)

	w := do(r, http.MethodGet, "/schema", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gotensor.ToolSpec(), w.Body.String())

	w = do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	do(r, http.MethodPost, "/tool", `{"tool": "compare", "params": {"a": {"type": "num", "value": "1"}, "b": {"type": "num", "value": "1"}}}`)
	w = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gotensor_comparisons_total")
}
