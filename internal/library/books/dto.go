package books

import "time"

// 蔵書登録リクエスト
type CreateBookRequest struct {
	Name   string `json:"name" binding:"required"`
	Author string `json:"author" binding:"required"`
	// 未指定なら true（新規登録時は貸出可能）
	Availability *bool `json:"availability,omitempty"`
}

// 蔵書レスポンス
type BookResponse struct {
	BookID       int64     `json:"book_id"`
	Name         string    `json:"name"`
	Author       string    `json:"author"`
	Availability bool      `json:"availability"`
	CreatedAt    time.Time `json:"created_at"`
}

func toResponse(b *Book) BookResponse {
	return BookResponse{
		BookID:       b.BookID,
		Name:         b.Name,
		Author:       b.Author,
		Availability: b.Availability,
		CreatedAt:    b.CreatedAt,
	}
}
