package lending

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"libra-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r *gin.RouterGroup, svc *Service, authn, admin gin.HandlerFunc) {
	h := &Handler{svc: svc}

	// 利用者系: 認証必須。user_id は検証済みトークンからのみ取る
	user := r.Group("/user", authn)
	user.POST("/issue/:book_id", h.UserIssue)
	user.POST("/return/:book_id", h.UserReturn)
	user.GET("/transactions", h.UserTransactions)

	// 窓口系: admin のみ
	adm := r.Group("/admin", authn, admin)
	adm.POST("/issue/:book_id", h.AdminIssue)
	adm.POST("/return/:book_id", h.AdminReturn)
}

// ---------- handlers ----------

func (h *Handler) UserIssue(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	userID := c.GetString(auth.CtxUserIDKey)

	if _, err := h.svc.Issue(c.Request.Context(), userID, bookID); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book issued successfully"})
}

func (h *Handler) UserReturn(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	userID := c.GetString(auth.CtxUserIDKey)

	if _, err := h.svc.Return(c.Request.Context(), userID, bookID); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book returned successfully"})
}

func (h *Handler) UserTransactions(c *gin.Context) {
	userID := c.GetString(auth.CtxUserIDKey)

	items, err := h.svc.Transactions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) AdminIssue(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	if err := h.svc.AdminIssue(c.Request.Context(), bookID); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book issued successfully"})
}

func (h *Handler) AdminReturn(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}
	if err := h.svc.AdminReturn(c.Request.Context(), bookID); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book returned successfully"})
}

// ---------- helpers ----------

func parseBookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("book_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid book_id"))
		return 0, false
	}
	return id, true
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
