package books

import "time"

// Book は books テーブルの1行を表す
type Book struct {
	BookID       int64
	Name         string
	Author       string
	Availability bool
	CreatedAt    time.Time
}
