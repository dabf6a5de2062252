package books

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// ===== Error model (platform/auth, lending と同型) =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string      { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError  { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeNotFound:
			return 404
		case CodeConflict:
			return 409
		default:
			return 500
		}
	}
	return 500
}

// ===== Service =====

type Service struct {
	store BookStore
}

func NewService(store BookStore) *Service {
	return &Service{store: store}
}

func (s *Service) CreateBook(ctx context.Context, in CreateBookRequest) (*BookResponse, error) {
	name := strings.TrimSpace(in.Name)
	author := strings.TrimSpace(in.Author)
	if name == "" || author == "" {
		return nil, ErrInvalid("name and author are required")
	}

	availability := true
	if in.Availability != nil {
		availability = *in.Availability
	}

	b, err := s.store.Insert(ctx, name, author, availability)
	if err != nil {
		return nil, err
	}
	res := toResponse(b)
	return &res, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (*BookResponse, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound("book not found")
	}
	res := toResponse(b)
	return &res, nil
}

func (s *Service) ListBooks(ctx context.Context) ([]BookResponse, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BookResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return out, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) (*BookResponse, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if removed == nil {
		return nil, ErrNotFound("book not found")
	}
	res := toResponse(removed)
	return &res, nil
}

// Seed は開発用の初期データ投入。蔵書が空のときだけ入れる。
func (s *Service) Seed(ctx context.Context) error {
	items, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return nil
	}

	seeds := []struct{ name, author string }{
		{"Book 1", "Author 1"},
		{"Book 2", "Author 2"},
	}
	for _, sd := range seeds {
		if _, err := s.store.Insert(ctx, sd.name, sd.author, true); err != nil {
			return err
		}
	}
	log.Println("[INFO] initial catalog seeded")
	return nil
}
