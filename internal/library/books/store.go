package books

import (
	"context"
	"database/sql"
	"errors"

	"libra-backend/internal/platform/db"
)

type BookStore interface {
	Insert(ctx context.Context, name, author string, availability bool) (*Book, error)
	GetByID(ctx context.Context, id int64) (*Book, error)
	List(ctx context.Context) ([]Book, error)
	Delete(ctx context.Context, id int64) (*Book, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) BookStore {
	return &Store{db: conn}
}

func (s *Store) Insert(ctx context.Context, name, author string, availability bool) (*Book, error) {
	const q = `
INSERT INTO books (name, author, availability, created_at)
VALUES (?, ?, ?, NOW(6))
`
	res, err := s.db.ExecContext(ctx, q, name, author, availability)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Book, error) {
	const q = `
SELECT book_id, name, author, availability, created_at
FROM books
WHERE book_id = ?
LIMIT 1
`
	var b Book
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&b.BookID, &b.Name, &b.Author, &b.Availability, &b.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) List(ctx context.Context) ([]Book, error) {
	const q = `
SELECT book_id, name, author, availability, created_at
FROM books
ORDER BY book_id ASC
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Book, 0)
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.BookID, &b.Name, &b.Author, &b.Availability, &b.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// Delete は削除した行を返す。貸出中（未返却の transaction が残っている）の蔵書は消せない。
func (s *Store) Delete(ctx context.Context, id int64) (*Book, error) {
	var removed *Book

	err := db.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx db.DBTX) error {
		const lockQ = `
SELECT book_id, name, author, availability, created_at
FROM books
WHERE book_id = ?
FOR UPDATE
`
		var b Book
		err := tx.QueryRowContext(ctx, lockQ, id).Scan(
			&b.BookID, &b.Name, &b.Author, &b.Availability, &b.CreatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // removed は nil のまま
		}
		if err != nil {
			return err
		}

		const openQ = `SELECT COUNT(*) FROM transactions WHERE book_id = ? AND type = 'borrowed'`
		var open int
		if err := tx.QueryRowContext(ctx, openQ, id).Scan(&open); err != nil {
			return err
		}
		if open > 0 {
			return ErrConflict("book has an open loan")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE book_id = ?`, id); err != nil {
			return err
		}
		removed = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
