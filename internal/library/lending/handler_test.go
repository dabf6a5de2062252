package lending

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libra-backend/internal/platform/auth"
)

var testSecret = []byte("unit-test-secret")

func signToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func newTestRouter(fs *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	RegisterRoutes(api, newTestService(fs), auth.RequireAuth(testSecret), auth.RequireRole(auth.RoleAdmin))
	return r
}

func doRequest(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestRoutes_AuthRequired(t *testing.T) {
	fs := newFakeStore()
	fs.addBook(1, "Book 1", "Author 1")
	r := newTestRouter(fs)

	// トークン無し
	w := doRequest(r, http.MethodPost, "/api/user/issue/1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 壊れたトークン
	w = doRequest(r, http.MethodPost, "/api/user/issue/1", "not-a-jwt")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// user ロールで admin 経路
	w = doRequest(r, http.MethodPost, "/api/admin/issue/1", signToken(t, "alice", "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 認可で落ちた場合は蔵書の状態に手を付けない
	assert.True(t, fs.books[1].available)
}

func TestUserIssueReturn_Flow(t *testing.T) {
	fs := newFakeStore()
	fs.addBook(1, "Book 1", "Author 1")
	r := newTestRouter(fs)
	alice := signToken(t, "alice", "user")
	bob := signToken(t, "bob", "user")

	w := doRequest(r, http.MethodPost, "/api/user/issue/1", alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Book issued successfully")
	assert.False(t, fs.books[1].available)

	// 貸出中の蔵書は他の利用者には貸せない
	w = doRequest(r, http.MethodPost, "/api/user/issue/1", bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(CodeBookUnavailable), errCode(t, w))

	// 借りていない利用者は返せない
	w = doRequest(r, http.MethodPost, "/api/user/return/1", bob)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(CodeNoOpenLoan), errCode(t, w))

	w = doRequest(r, http.MethodPost, "/api/user/return/1", alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Book returned successfully")
	assert.True(t, fs.books[1].available)
}

// user_id はトークンの sub からのみ決まる（リクエストで他人に成りすませない）
func TestUserTransactions_IdentityFromToken(t *testing.T) {
	fs := newFakeStore()
	fs.addBook(1, "Book 1", "Author 1")
	r := newTestRouter(fs)

	w := doRequest(r, http.MethodPost, "/api/user/issue/1", signToken(t, "alice", "user"))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/user/transactions?user_id=alice", signToken(t, "bob", "user"))
	require.Equal(t, http.StatusOK, w.Code)

	var items []TransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Empty(t, items, "bob のトークンで alice の履歴は見えない")

	w = doRequest(r, http.MethodGet, "/api/user/transactions", signToken(t, "alice", "user"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].UserID)
}

func TestAdminRoutes(t *testing.T) {
	fs := newFakeStore()
	fs.addBook(1, "Book 1", "Author 1")
	r := newTestRouter(fs)
	admin := signToken(t, "desk", "admin")

	w := doRequest(r, http.MethodPost, "/api/admin/issue/1", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, fs.books[1].available)
	assert.Empty(t, fs.transactions)

	w = doRequest(r, http.MethodPost, "/api/admin/return/1", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, fs.books[1].available)

	// 存在しない蔵書の窓口返却は 400 BOOK_NOT_FOUND
	w = doRequest(r, http.MethodPost, "/api/admin/return/99", admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(CodeBookNotFound), errCode(t, w))
}

func TestParseBookID(t *testing.T) {
	fs := newFakeStore()
	r := newTestRouter(fs)

	w := doRequest(r, http.MethodPost, "/api/user/issue/abc", signToken(t, "alice", "user"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(CodeInvalidArgument), errCode(t, w))
}
