package lending

import (
	"errors"
	"fmt"
)

// ===== Error model (books, platform/auth と同型。コードは貸出ドメイン固有) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeBookUnavailable Code = "BOOK_UNAVAILABLE"
	CodeNoOpenLoan      Code = "NO_OPEN_LOAN"
	CodeBookNotFound    Code = "BOOK_NOT_FOUND"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError         { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrBookUnavailable(msg string) *APIError { return &APIError{Code: CodeBookUnavailable, Message: msg} }
func ErrNoOpenLoan(msg string) *APIError      { return &APIError{Code: CodeNoOpenLoan, Message: msg} }
func ErrBookNotFound(msg string) *APIError    { return &APIError{Code: CodeBookNotFound, Message: msg} }
func ErrInternal(msg string) *APIError        { return &APIError{Code: CodeInternal, Message: msg} }

// 貸出系の失敗は（蔵書API の 404 と違い）一律 400 で返す
func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument, CodeBookUnavailable, CodeNoOpenLoan, CodeBookNotFound:
			return 400
		default:
			return 500
		}
	}
	return 500
}
