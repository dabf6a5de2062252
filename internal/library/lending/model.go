package lending

import (
	"database/sql"
	"time"
)

const (
	TypeBorrowed = "borrowed"
	TypeReturned = "returned"
)

// Transaction は transactions テーブルの1行を表す。
// 貸出履歴は追記専用で、返却時に type が borrowed -> returned に変わるだけ。
type Transaction struct {
	TransactionID   int64
	TransactionULID string
	UserID          string
	BookID          int64
	Type            string
	DueOn           time.Time
	BorrowedAt      time.Time
	ReturnedAt      sql.NullTime
}

// 履歴一覧用: transaction に books を JOIN した行。
// 蔵書が後から削除された場合も履歴は残るので book 側は nullable。
type TransactionWithBook struct {
	Transaction
	BookName         sql.NullString
	BookAuthor       sql.NullString
	BookAvailability sql.NullBool
}
