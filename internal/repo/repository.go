package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
	ErrCorrupt  = errors.New("record corrupted")
)

// CheckStore is a keyed collection of check documents.
// Create fails with ErrExists, Read and Update fail with ErrNotFound.
type CheckStore interface {
	Create(ctx context.Context, c domain.Check) error
	Read(ctx context.Context, id domain.CheckID) (domain.Check, error)
	Update(ctx context.Context, c domain.Check) error
	Remove(ctx context.Context, id domain.CheckID) error
	List(ctx context.Context) ([]domain.CheckID, error)
}
