package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(fs *fakeAccountStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), newTestAuthService(fs))
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// 公開登録でロールを指定しても無視され、必ず user になる
func TestRegister_RoleNotClientControlled(t *testing.T) {
	fs := newFakeAccountStore()
	r := newAuthRouter(fs)

	w := postJSON(r, "/api/auth/register", `{"id":"mallory","password":"x","role":"admin"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	acct := fs.accounts["mallory"]
	require.NotNil(t, acct)
	assert.Equal(t, RoleUser, acct.Role, "ロールはリクエストからは決まらない")
}

func TestRegisterHandler(t *testing.T) {
	fs := newFakeAccountStore()
	r := newAuthRouter(fs)

	w := postJSON(r, "/api/auth/register", `{"id":"alice","password":"passw0rd"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, fs.accounts["alice"])
	assert.Equal(t, RoleUser, fs.accounts["alice"].Role)

	// 重複ID
	w = postJSON(r, "/api/auth/register", `{"id":"alice","password":"other"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 必須項目欠落
	w = postJSON(r, "/api/auth/register", `{"id":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginHandler(t *testing.T) {
	fs := newFakeAccountStore()
	r := newAuthRouter(fs)

	w := postJSON(r, "/api/auth/register", `{"id":"alice","password":"passw0rd"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(r, "/api/auth/login", `{"id":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(r, "/api/auth/login", `{"id":"alice","password":"passw0rd"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")
}
