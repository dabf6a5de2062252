package lending

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"libra-backend/internal/platform/db"
)

// LendingStore は貸出エンジンが要求する永続化操作。
// 実装（SQL）は books と transactions を同一Txで更新し、部分適用を起こさない。
type LendingStore interface {
	// IssueLoan: 蔵書をロックして貸出可否を確認し、フラグ反転と履歴INSERTを行う。
	// 蔵書が無い・貸出中なら ErrBookUnavailable。成功時は t に ID を書き戻す。
	IssueLoan(ctx context.Context, t *Transaction) error

	// CloseLoan: (user, book) の未返却 transaction を returned に落とし、蔵書を貸出可能に戻す。
	// 該当する未返却の貸出が無ければ ErrNoOpenLoan。
	CloseLoan(ctx context.Context, userID string, bookID int64, returnedAt time.Time) (*Transaction, error)

	// MarkUnavailable: admin 貸出。履歴を作らずフラグだけ落とす。
	MarkUnavailable(ctx context.Context, bookID int64) error

	// MarkAvailable: admin 返却。フラグを戻し、未返却の履歴が残っていれば
	// 最新の1件（借り手は問わない）を returned に落とす。蔵書が無ければ ErrBookNotFound。
	MarkAvailable(ctx context.Context, bookID int64, returnedAt time.Time) (*Transaction, error)

	ListForUser(ctx context.Context, userID string) ([]TransactionWithBook, error)
}

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) LendingStore {
	return &Store{db: conn}
}

// 行ロック付きで availability を取得
func lockBookRow(ctx context.Context, tx db.DBTX, bookID int64) (available bool, found bool, err error) {
	const q = `SELECT availability FROM books WHERE book_id = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, q, bookID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return available, true, nil
}

func setAvailability(ctx context.Context, tx db.DBTX, bookID int64, available bool) error {
	const q = `UPDATE books SET availability = ? WHERE book_id = ?`
	res, err := tx.ExecContext(ctx, q, available, bookID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff > 1 {
		return ErrInternal("availability update touched multiple rows")
	}
	return nil
}

func (s *Store) IssueLoan(ctx context.Context, t *Transaction) error {
	return db.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx db.DBTX) error {
		// 1. 蔵書行をロックして在庫確認（同一蔵書への同時 issue はここで直列化される）
		available, found, err := lockBookRow(ctx, tx, t.BookID)
		if err != nil {
			return err
		}
		if !found || !available {
			return ErrBookUnavailable("book not available for issue")
		}

		// 2. フラグ反転
		if err := setAvailability(ctx, tx, t.BookID, false); err != nil {
			return err
		}

		// 3. 履歴INSERT
		const q = `
INSERT INTO transactions
(transaction_ulid, user_id, book_id, type, due_on, borrowed_at)
VALUES
(?, ?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, q,
			t.TransactionULID, t.UserID, t.BookID, TypeBorrowed, t.DueOn, t.BorrowedAt,
		)
		if err != nil {
			return err
		}
		id, _ := res.LastInsertId()
		t.TransactionID = id
		t.Type = TypeBorrowed
		return nil
	})
}

func (s *Store) CloseLoan(ctx context.Context, userID string, bookID int64, returnedAt time.Time) (*Transaction, error) {
	var closed Transaction

	err := db.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx db.DBTX) error {
		// 1. まず蔵書行をロックする。IssueLoan と同じ順（books -> transactions）で
		//    取らないと同一蔵書への issue/return 競合でデッドロックする。
		//    蔵書が無ければ未返却の貸出も存在しない（削除ガードがあるため）。
		_, found, err := lockBookRow(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNoOpenLoan("you have not borrowed this book")
		}

		// 2. 未返却の貸出をロック付きで取得（無ければこの利用者は借りていない）
		const q = `
SELECT transaction_id, transaction_ulid, user_id, book_id, type, due_on, borrowed_at
FROM transactions
WHERE user_id = ? AND book_id = ? AND type = ?
ORDER BY transaction_id DESC
LIMIT 1
FOR UPDATE`
		err = tx.QueryRowContext(ctx, q, userID, bookID, TypeBorrowed).Scan(
			&closed.TransactionID, &closed.TransactionULID, &closed.UserID,
			&closed.BookID, &closed.Type, &closed.DueOn, &closed.BorrowedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoOpenLoan("you have not borrowed this book")
		}
		if err != nil {
			return err
		}

		// 3. 履歴を returned に更新
		if err := markReturned(ctx, tx, closed.TransactionID, returnedAt); err != nil {
			return err
		}

		// 4. フラグを戻す
		if err := setAvailability(ctx, tx, bookID, true); err != nil {
			return err
		}

		closed.Type = TypeReturned
		closed.ReturnedAt = sql.NullTime{Time: returnedAt, Valid: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}

func (s *Store) MarkUnavailable(ctx context.Context, bookID int64) error {
	return db.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx db.DBTX) error {
		available, found, err := lockBookRow(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !found || !available {
			return ErrBookUnavailable("book not available for issue")
		}
		return setAvailability(ctx, tx, bookID, false)
	})
}

func (s *Store) MarkAvailable(ctx context.Context, bookID int64, returnedAt time.Time) (*Transaction, error) {
	var closed *Transaction

	err := db.RunInTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx db.DBTX) error {
		_, found, err := lockBookRow(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if !found {
			return ErrBookNotFound("book not found")
		}

		if err := setAvailability(ctx, tx, bookID, true); err != nil {
			return err
		}

		// 未返却の履歴が残っていれば最新の1件を閉じて台帳のズレを防ぐ
		const q = `
SELECT transaction_id, transaction_ulid, user_id, book_id, type, due_on, borrowed_at
FROM transactions
WHERE book_id = ? AND type = ?
ORDER BY transaction_id DESC
LIMIT 1
FOR UPDATE`
		var t Transaction
		err = tx.QueryRowContext(ctx, q, bookID, TypeBorrowed).Scan(
			&t.TransactionID, &t.TransactionULID, &t.UserID,
			&t.BookID, &t.Type, &t.DueOn, &t.BorrowedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil // 手渡し返却など、台帳に無い返却は正常
		}
		if err != nil {
			return err
		}

		if err := markReturned(ctx, tx, t.TransactionID, returnedAt); err != nil {
			return err
		}
		t.Type = TypeReturned
		t.ReturnedAt = sql.NullTime{Time: returnedAt, Valid: true}
		closed = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func markReturned(ctx context.Context, tx db.DBTX, transactionID int64, returnedAt time.Time) error {
	const q = `UPDATE transactions SET type = ?, returned_at = ? WHERE transaction_id = ?`
	res, err := tx.ExecContext(ctx, q, TypeReturned, returnedAt, transactionID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return ErrInternal("failed to update transactions.type")
	}
	return nil
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]TransactionWithBook, error) {
	const q = `
SELECT
	t.transaction_id, t.transaction_ulid, t.user_id, t.book_id, t.type,
	t.due_on, t.borrowed_at, t.returned_at,
	b.name, b.author, b.availability
FROM transactions t
LEFT JOIN books b ON b.book_id = t.book_id
WHERE t.user_id = ?
ORDER BY t.transaction_id DESC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]TransactionWithBook, 0)
	for rows.Next() {
		var t TransactionWithBook
		if err := rows.Scan(
			&t.TransactionID, &t.TransactionULID, &t.UserID, &t.BookID, &t.Type,
			&t.DueOn, &t.BorrowedAt, &t.ReturnedAt,
			&t.BookName, &t.BookAuthor, &t.BookAvailability,
		); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
