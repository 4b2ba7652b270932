package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharma-backoffice/internal/core/auth"
	"pharma-backoffice/internal/core/config"
	"pharma-backoffice/internal/feature/payment"
	"pharma-backoffice/internal/feature/shipping"
	"pharma-backoffice/internal/feature/user"
	"pharma-backoffice/internal/remote"
	"pharma-backoffice/internal/repo/repotest"
	"pharma-backoffice/internal/session"
	"pharma-backoffice/internal/transport/http/handler"
	resp "pharma-backoffice/internal/transport/http/response"
	"pharma-backoffice/pkg/utils"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

type adminFixture struct {
	c    *client
	jwt  *auth.JWTer
	sess session.Store
}

func newAdmin(t *testing.T) adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repotest.NewStore(t)
	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)

	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour}
	sess := session.NewMemoryStore(0)
	mgr := shipping.NewManager(shipping.Config{
		BaseURL:  "https://provider.example.com",
		ClientID: "cid",
		State:    "backoffice",
		Scopes:   []string{"orders-read"},
	}, store.Tokens())

	r := NewAdminEngine(AdminDeps{
		Log:      zap.NewNop(),
		JWT:      jwter,
		Operator: config.Operator{Email: "ops@farma.com", PasswordHash: hash, Role: "admin"},
		Session:  sess,
		Users:    user.NewService(user.NewLocalRepository(store.Users())),
		Payments: payment.NewService(store.Transactions(), nil, 0, nil),
		Shipping: mgr,
		Callback: handler.ShippingCallback{M: mgr, SuccessURL: "/ok", ErrorURL: "/err", Log: zap.NewNop()},
	})
	return adminFixture{c: &client{t: t, h: r}, jwt: jwter, sess: sess}
}

func TestAdmin_HealthAndMetrics(t *testing.T) {
	f := newAdmin(t)
	code, _ := f.c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdmin_Login(t *testing.T) {
	f := newAdmin(t)

	code, env := f.c.do(http.MethodPost, "/admin/v1/auth/login", gin.H{"email": "ops@farma.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, resp.CodeUnauthorized, env.Code)

	code, env = f.c.do(http.MethodPost, "/admin/v1/auth/login", gin.H{"email": "OPS@farma.com", "password": "s3cret"})
	require.Equal(t, http.StatusOK, code)
	out := decode[struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}](t, env)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "admin", out.Role)

	cached, err := f.sess.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, out.Token, cached)

	f.c.token = out.Token
	code, _ = f.c.do(http.MethodPost, "/admin/v1/auth/logout", nil)
	assert.Equal(t, http.StatusOK, code)
	cached, err = f.sess.Get(t.Context())
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func (f adminFixture) loginAs(t *testing.T, role string) {
	tok, err := f.jwt.Issue("ops@farma.com", role)
	require.NoError(t, err)
	f.c.token = tok
}

func TestAdmin_Users(t *testing.T) {
	f := newAdmin(t)

	code, _ := f.c.do(http.MethodGet, "/admin/v1/users", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	f.loginAs(t, "admin")
	code, env := f.c.do(http.MethodGet, "/admin/v1/users", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	in := gin.H{"id": "u1", "name": "Ana", "email": "a@b.com", "role": "customer", "status": "active", "kycVerified": false}
	code, _ = f.c.do(http.MethodPost, "/admin/v1/users", in)
	require.Equal(t, http.StatusOK, code)

	code, env = f.c.do(http.MethodPost, "/admin/v1/users", gin.H{"id": "u2", "name": "B", "email": "a@b.com", "role": "seller"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, resp.CodeConflict, env.Code)

	code, _ = f.c.do(http.MethodPost, "/admin/v1/users", gin.H{"name": "B", "email": "nope", "role": "seller"})
	assert.Equal(t, http.StatusBadRequest, code)

	_, env = f.c.do(http.MethodPost, "/admin/v1/users/u1/toggle-block", nil)
	assert.Equal(t, "blocked", decode[map[string]any](t, env)["status"])

	_, env = f.c.do(http.MethodPut, "/admin/v1/users/u1", gin.H{"name": "Ana Maria"})
	assert.Equal(t, "Ana Maria", decode[map[string]any](t, env)["name"])

	_, env = f.c.do(http.MethodGet, "/admin/v1/users/u1", nil)
	got := decode[map[string]any](t, env)
	assert.Equal(t, "blocked", got["status"])
	assert.Equal(t, "Ana Maria", got["name"])

	code, _ = f.c.do(http.MethodGet, "/admin/v1/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	f.loginAs(t, "manager")
	code, _ = f.c.do(http.MethodDelete, "/admin/v1/users/u1", nil)
	assert.Equal(t, http.StatusForbidden, code)

	f.loginAs(t, "admin")
	code, _ = f.c.do(http.MethodDelete, "/admin/v1/users/u1", nil)
	assert.Equal(t, http.StatusOK, code)

	f.loginAs(t, "seller")
	code, _ = f.c.do(http.MethodGet, "/admin/v1/users", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAdmin_Transactions(t *testing.T) {
	f := newAdmin(t)
	f.loginAs(t, "admin")

	code, env := f.c.do(http.MethodPost, "/admin/v1/transactions", gin.H{"orderId": "o1", "amount": 4990, "method": "pix", "status": "paid"})
	require.Equal(t, http.StatusOK, code)
	id := decode[map[string]any](t, env)["id"].(string)

	_, _ = f.c.do(http.MethodPost, "/admin/v1/transactions", gin.H{"orderId": "o2", "amount": 1000, "method": "boleto"})

	_, env = f.c.do(http.MethodGet, "/admin/v1/transactions?method=pix", nil)
	assert.Len(t, decode[[]map[string]any](t, env), 1)

	code, _ = f.c.do(http.MethodGet, "/admin/v1/transactions?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	for range 2 {
		code, env = f.c.do(http.MethodPost, "/admin/v1/transactions/"+id+"/refund", nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "refunded", decode[map[string]any](t, env)["status"])
	}

	_, env = f.c.do(http.MethodGet, "/admin/v1/transactions/summary", nil)
	sum := decode[payment.Summary](t, env)
	assert.Equal(t, int64(2), sum.Count)
	assert.Equal(t, int64(4990), sum.Refunded)

	_, env = f.c.do(http.MethodGet, "/admin/v1/transactions/"+id, nil)
	assert.Equal(t, "o1", decode[map[string]any](t, env)["orderId"])
}

func TestAdmin_Shipping(t *testing.T) {
	f := newAdmin(t)
	f.loginAs(t, "admin")

	_, env := f.c.do(http.MethodGet, "/admin/v1/shipping/status", nil)
	assert.Equal(t, false, decode[map[string]any](t, env)["authorized"])

	_, env = f.c.do(http.MethodGet, "/admin/v1/shipping/authorize?origin=http://admin.local", nil)
	raw := decode[map[string]string](t, env)["url"]
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http://admin.local/shipping/oauth/callback", u.Query().Get("redirect_uri"))

	code, _ := f.c.do(http.MethodPost, "/admin/v1/shipping/revoke", nil)
	assert.Equal(t, http.StatusOK, code)

	// 回调是公共路由；provider 返回 error 时直接跳错误页
	f.c.token = ""
	w := httptest.NewRecorder()
	f.c.h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/shipping/oauth/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/err?error=access_denied", w.Header().Get("Location"))
}

func newAPI(t *testing.T) (*httptest.Server, *auth.JWTer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour}
	srv := httptest.NewServer(NewAPIEngine(zap.NewNop(), repotest.NewStore(t).Users(), jwter))
	t.Cleanup(srv.Close)
	return srv, jwter
}

func TestAPI_ManageUsers(t *testing.T) {
	srv, jwter := newAPI(t)
	c := &client{t: t, h: srv.Config.Handler}

	code, _ := c.do(http.MethodPost, remote.ManageUsersPath, gin.H{"action": "listUsers"})
	assert.Equal(t, http.StatusUnauthorized, code)

	tok, err := jwter.Issue("ops@farma.com", "admin")
	require.NoError(t, err)
	c.token = tok

	code, _ = c.do(http.MethodPost, remote.ManageUsersPath, gin.H{"action": "dropTables"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := c.do(http.MethodPost, remote.ManageUsersPath, gin.H{"action": "addUser", "user": gin.H{"name": "Ana", "email": "ana@x.io", "role": "seller"}})
	require.Equal(t, http.StatusOK, code)
	id := decode[map[string]any](t, env)["id"].(string)
	assert.NotEmpty(t, id)

	code, _ = c.do(http.MethodPost, remote.ManageUsersPath, gin.H{"action": "addUser", "user": gin.H{"name": "B", "email": "ana@x.io", "role": "seller"}})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = c.do(http.MethodPost, remote.ManageUsersPath, gin.H{"action": "deleteUser", "id": id})
	assert.Equal(t, http.StatusOK, code)
}

// 后台连函数服务：远端在线时写远端，下线后写本地
func TestAdmin_RemoteFirstThenLocal(t *testing.T) {
	srv, jwter := newAPI(t)
	tok, err := jwter.Issue("ops@farma.com", "admin")
	require.NoError(t, err)

	sess := session.NewMemoryStore(0)
	require.NoError(t, sess.Set(t.Context(), tok))
	rc := remote.NewClient(remote.Options{BaseURL: srv.URL, Timeout: time.Second}, session.Source{Store: sess})
	local := repotest.NewStore(t).Users()
	svc := user.NewService(user.NewFallbackRepository(user.NewRemoteRepository(rc), user.NewLocalRepository(local), zap.NewNop()))

	u, err := svc.Create(t.Context(), domainInput("ana@x.io"))
	require.NoError(t, err)
	_, err = local.Get(t.Context(), u.ID)
	assert.Error(t, err, "remote write must not touch the local store")

	srv.Close()
	u2, err := svc.Create(t.Context(), domainInput("bea@x.io"))
	require.NoError(t, err)
	got, err := local.Get(t.Context(), u2.ID)
	require.NoError(t, err)
	assert.Equal(t, "bea@x.io", got.Email)
}

func TestOversizedBodyIs413(t *testing.T) {
	big := strings.Repeat("a", 1<<20+1)

	f := newAdmin(t)
	f.loginAs(t, "admin")
	code, env := f.c.do(http.MethodPost, "/admin/v1/users", gin.H{"name": big, "email": "a@b.com", "role": "seller"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, resp.CodeTooLarge, env.Code)

	srv, jwter := newAPI(t)
	tok, err := jwter.Issue("ops@farma.com", "admin")
	require.NoError(t, err)
	c := &client{t: t, h: srv.Config.Handler, token: tok}
	code, env = c.do(http.MethodPost, remote.ManageUsersPath, gin.H{"action": "addUser", "user": gin.H{"name": big}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Equal(t, resp.CodeTooLarge, env.Code)
}
