package repositories

import (
	"context"
	"errors"

	"productapi/internal/models"
)

var (
	// ErrProductNotFound is returned when no product has the requested ID.
	ErrProductNotFound = errors.New("product not found")
	// ErrPersistence wraps every failure of the underlying store.
	ErrPersistence = errors.New("persistence failure")
	// ErrSessionClosed is returned when a session is used after Commit or Rollback.
	ErrSessionClosed = errors.New("session already closed")
)

// ProductRepository defines read access to stored products.
type ProductRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	FindAll(ctx context.Context) ([]models.Product, error)
}

// Session stages product writes and applies them in one unit on Commit.
type Session interface {
	// Stage marks p for insert when it has no ID yet, otherwise for update.
	Stage(p *models.Product)
	// Remove marks p for deletion.
	Remove(p *models.Product)
	// Commit applies every staged operation atomically and assigns IDs to inserts.
	Commit(ctx context.Context) error
	// Rollback discards staged operations. It is a no-op after Commit.
	Rollback()
}

// SessionFactory opens request-scoped sessions.
type SessionFactory interface {
	NewSession() Session
}

type opKind int

const (
	opSave opKind = iota
	opDelete
)

type stagedOp struct {
	kind    opKind
	product *models.Product
}

// unitOfWork is the staging bookkeeping shared by session implementations.
type unitOfWork struct {
	ops    []stagedOp
	closed bool
}

func (u *unitOfWork) Stage(p *models.Product) {
	if u.closed {
		return
	}
	u.ops = append(u.ops, stagedOp{kind: opSave, product: p})
}

func (u *unitOfWork) Remove(p *models.Product) {
	if u.closed {
		return
	}
	u.ops = append(u.ops, stagedOp{kind: opDelete, product: p})
}

func (u *unitOfWork) Rollback() {
	u.ops = nil
	u.closed = true
}

// take hands the staged operations to Commit and closes the unit.
func (u *unitOfWork) take() ([]stagedOp, error) {
	if u.closed {
		return nil, ErrSessionClosed
	}
	ops := u.ops
	u.ops = nil
	u.closed = true
	for _, op := range ops {
		if op.product == nil {
			return nil, errors.Join(ErrPersistence, errors.New("cannot write a nil product"))
		}
	}
	return ops, nil
}
