package lending

import "time"

// 履歴レスポンスに埋め込む蔵書情報（削除済みなら null）
type TransactionBook struct {
	BookID       int64  `json:"book_id"`
	Name         string `json:"name"`
	Author       string `json:"author"`
	Availability bool   `json:"availability"`
}

// 貸出履歴レスポンス
type TransactionResponse struct {
	TransactionID   int64            `json:"transaction_id"`
	TransactionULID string           `json:"transaction_ulid"`
	UserID          string           `json:"user_id"`
	BookID          int64            `json:"book_id"`
	Type            string           `json:"type"`
	DueOn           time.Time        `json:"due_on"`
	BorrowedAt      time.Time        `json:"borrowed_at"`
	ReturnedAt      *time.Time       `json:"returned_at,omitempty"`
	Book            *TransactionBook `json:"book,omitempty"`
}

func toTransactionResponse(t *TransactionWithBook) TransactionResponse {
	res := TransactionResponse{
		TransactionID:   t.TransactionID,
		TransactionULID: t.TransactionULID,
		UserID:          t.UserID,
		BookID:          t.BookID,
		Type:            t.Type,
		DueOn:           t.DueOn,
		BorrowedAt:      t.BorrowedAt,
	}
	if t.ReturnedAt.Valid {
		at := t.ReturnedAt.Time
		res.ReturnedAt = &at
	}
	if t.BookName.Valid {
		res.Book = &TransactionBook{
			BookID:       t.BookID,
			Name:         t.BookName.String,
			Author:       t.BookAuthor.String,
			Availability: t.BookAvailability.Bool,
		}
	}
	return res
}
