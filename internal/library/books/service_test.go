package books

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== In-memory BookStore =====

type fakeBookStore struct {
	books     map[int64]*Book
	openLoans map[int64]bool // 未返却の貸出がある蔵書
	nextID    int64
}

func newFakeBookStore() *fakeBookStore {
	return &fakeBookStore{books: map[int64]*Book{}, openLoans: map[int64]bool{}}
}

func (f *fakeBookStore) Insert(_ context.Context, name, author string, availability bool) (*Book, error) {
	f.nextID++
	b := &Book{
		BookID:       f.nextID,
		Name:         name,
		Author:       author,
		Availability: availability,
		CreatedAt:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	f.books[b.BookID] = b
	return b, nil
}

func (f *fakeBookStore) GetByID(_ context.Context, id int64) (*Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, nil
	}
	return b, nil
}

func (f *fakeBookStore) List(_ context.Context) ([]Book, error) {
	items := make([]Book, 0, len(f.books))
	for id := int64(1); id <= f.nextID; id++ {
		if b, ok := f.books[id]; ok {
			items = append(items, *b)
		}
	}
	return items, nil
}

func (f *fakeBookStore) Delete(_ context.Context, id int64) (*Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, nil
	}
	if f.openLoans[id] {
		return nil, ErrConflict("book has an open loan")
	}
	delete(f.books, id)
	return b, nil
}

func apiCode(t *testing.T, err error) Code {
	t.Helper()
	var api *APIError
	require.True(t, errors.As(err, &api), "expected *APIError, got %v", err)
	return api.Code
}

// ===== Tests =====

func TestCreateBook_Validation(t *testing.T) {
	svc := NewService(newFakeBookStore())
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateBookRequest
	}{
		{"empty name", CreateBookRequest{Name: "", Author: "Author 1"}},
		{"empty author", CreateBookRequest{Name: "Book 1", Author: ""}},
		{"whitespace only", CreateBookRequest{Name: "   ", Author: "\t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBook(ctx, tt.req)
			assert.Equal(t, CodeInvalidArgument, apiCode(t, err))
		})
	}
}

func TestCreateBook_DefaultAvailability(t *testing.T) {
	svc := NewService(newFakeBookStore())
	ctx := context.Background()

	res, err := svc.CreateBook(ctx, CreateBookRequest{Name: "Book 1", Author: "Author 1"})
	require.NoError(t, err)
	assert.True(t, res.Availability)

	unavailable := false
	res, err = svc.CreateBook(ctx, CreateBookRequest{Name: "Book 2", Author: "Author 2", Availability: &unavailable})
	require.NoError(t, err)
	assert.False(t, res.Availability)
}

func TestGetBook_NotFound(t *testing.T) {
	svc := NewService(newFakeBookStore())

	_, err := svc.GetBook(context.Background(), 42)
	assert.Equal(t, CodeNotFound, apiCode(t, err))
}

func TestDeleteBook(t *testing.T) {
	fs := newFakeBookStore()
	svc := NewService(fs)
	ctx := context.Background()

	created, err := svc.CreateBook(ctx, CreateBookRequest{Name: "Book 1", Author: "Author 1"})
	require.NoError(t, err)

	// 貸出中は消せない
	fs.openLoans[created.BookID] = true
	_, err = svc.DeleteBook(ctx, created.BookID)
	assert.Equal(t, CodeConflict, apiCode(t, err))

	fs.openLoans[created.BookID] = false
	removed, err := svc.DeleteBook(ctx, created.BookID)
	require.NoError(t, err)
	assert.Equal(t, created.BookID, removed.BookID)

	_, err = svc.DeleteBook(ctx, created.BookID)
	assert.Equal(t, CodeNotFound, apiCode(t, err))
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	fs := newFakeBookStore()
	svc := NewService(fs)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	items, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Book 1", items[0].Name)

	// 二度目は何もしない
	require.NoError(t, svc.Seed(ctx))
	items, err = svc.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
