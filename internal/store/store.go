package store

import (
	"context"
	"errors"
	"time"

	"whiteboard-sync-server/internal/domain"
)

// ErrVersionMismatch is raised by TransactionalWrite when the stored version
// differs from the caller's expected version. No write occurs. It is the
// single conflict-detection anchor of the whole system.
var ErrVersionMismatch = errors.New("version mismatch")

// ErrNotFound is returned when a record is absent. On the write path absence
// is not an error: it means effective remote version 0.
var ErrNotFound = errors.New("not found")

// WriteResult carries the store-assigned version and timestamp of a
// successful transactional write.
type WriteResult struct {
	NewVersion int64
	WrittenAt  time.Time
}

type ProjectStore interface {
	FetchByID(ctx context.Context, id string) (domain.Project, error)
	FetchByOwner(ctx context.Context, ownerID string) ([]domain.Project, error)
	TransactionalWrite(ctx context.Context, project domain.Project, ownerID string) (WriteResult, error)
	DeleteByID(ctx context.Context, id string) error
}

type PageStore interface {
	FetchByID(ctx context.Context, id string) (domain.Page, error)
	FetchByOwner(ctx context.Context, ownerID string) ([]domain.Page, error)
	TransactionalWrite(ctx context.Context, page domain.Page, ownerID string) (WriteResult, error)
	DeleteByID(ctx context.Context, id string) error
}

type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}
