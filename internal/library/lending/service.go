package lending

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// 既定の貸出期間（日）
const DefaultLoanDays = 14

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Service本体 =====

type Service struct {
	store    LendingStore
	clock    Clock
	id       IDGen
	loanDays int
}

func NewService(store LendingStore, loanDays int) *Service {
	if loanDays <= 0 {
		loanDays = DefaultLoanDays
	}
	return &Service{
		store:    store,
		clock:    realClock{},
		id:       ulidGen{},
		loanDays: loanDays,
	}
}

// Issue は利用者への貸出。蔵書フラグ反転と履歴作成を1操作で行う。
func (s *Service) Issue(ctx context.Context, userID string, bookID int64) (*TransactionResponse, error) {
	if userID == "" {
		return nil, ErrInvalid("user_id is required")
	}
	if bookID <= 0 {
		return nil, ErrInvalid("invalid book_id")
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	t := &Transaction{
		TransactionULID: idStr,
		UserID:          userID,
		BookID:          bookID,
		Type:            TypeBorrowed,
		DueOn:           now.AddDate(0, 0, s.loanDays),
		BorrowedAt:      now,
	}

	if err := s.store.IssueLoan(ctx, t); err != nil {
		return nil, err
	}

	res := toTransactionResponse(&TransactionWithBook{Transaction: *t})
	return &res, nil
}

// Return は利用者からの返却。本人の未返却の貸出が無ければ失敗する。
func (s *Service) Return(ctx context.Context, userID string, bookID int64) (*TransactionResponse, error) {
	if userID == "" {
		return nil, ErrInvalid("user_id is required")
	}
	if bookID <= 0 {
		return nil, ErrInvalid("invalid book_id")
	}

	closed, err := s.store.CloseLoan(ctx, userID, bookID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	res := toTransactionResponse(&TransactionWithBook{Transaction: *closed})
	return &res, nil
}

// AdminIssue は窓口での貸出。台帳には記録せずフラグだけ落とす。
func (s *Service) AdminIssue(ctx context.Context, bookID int64) error {
	if bookID <= 0 {
		return ErrInvalid("invalid book_id")
	}
	return s.store.MarkUnavailable(ctx, bookID)
}

// AdminReturn は窓口での返却。未返却の履歴が残っていれば併せて閉じる。
func (s *Service) AdminReturn(ctx context.Context, bookID int64) error {
	if bookID <= 0 {
		return ErrInvalid("invalid book_id")
	}
	_, err := s.store.MarkAvailable(ctx, bookID, s.clock.Now())
	return err
}

// Transactions は利用者本人の貸出履歴（蔵書情報付き）を返す。
func (s *Service) Transactions(ctx context.Context, userID string) ([]TransactionResponse, error) {
	if userID == "" {
		return nil, ErrInvalid("user_id is required")
	}

	items, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionResponse, 0, len(items))
	for i := range items {
		out = append(out, toTransactionResponse(&items[i]))
	}
	return out, nil
}
