package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharma-backoffice/internal/domain"
	resp "pharma-backoffice/internal/transport/http/response"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", domain.ErrInvalid), resp.CodeBadRequest},
		{fmt.Errorf("x: %w", domain.ErrNotFound), resp.CodeNotFound},
		{fmt.Errorf("x: %w", domain.ErrConflict), resp.CodeConflict},
		{fmt.Errorf("x: %w", domain.ErrStorageUnavailable), resp.CodeUnavailable},
		{Forbidden("no"), resp.CodeForbidden},
		{errors.New("boom"), resp.CodeServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeOf(tt.err), tt.err.Error())
	}
}

type echoIn struct {
	Name string `json:"name" binding:"required"`
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	e := New(r.Group("/v1"))
	RegisterAction(e, Action[echoIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/echo",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *echoIn) (gin.H, error) {
			if in.Name == "dup" {
				return nil, fmt.Errorf("echo: %w", domain.ErrConflict)
			}
			if in.Name == "boom" {
				return nil, errors.New("db exploded")
			}
			return gin.H{"name": in.Name}, nil
		},
	})
	RegisterAction(e, Action[struct{}, string]{
		Method:  http.MethodGet,
		Path:    "/admin-only",
		Auth:    true,
		Roles:   []string{"admin"},
		Handler: func(*gin.Context, *struct{}) (string, error) { return "ok", nil },
	})
	return r
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, resp.Resp) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	var out resp.Resp
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRegisterAction(t *testing.T) {
	r := newEngine()

	w, out := do(r, http.MethodPost, "/v1/echo", `{"name":"ana"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, resp.CodeOK, out.Code)
	assert.Equal(t, map[string]any{"name": "ana"}, out.Data)

	w, out = do(r, http.MethodPost, "/v1/echo", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, resp.CodeBadRequest, out.Code)

	w, out = do(r, http.MethodPost, "/v1/echo", `{"name":"dup"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "echo: conflict", out.Msg)

	w, out = do(r, http.MethodPost, "/v1/echo", `{"name":"boom"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, out.Msg, "exploded")

	w, _ = do(r, http.MethodGet, "/v1/admin-only", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
