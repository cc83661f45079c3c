package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"productapi/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository and SessionFactory.
type MockProductRepository struct {
	products map[uint]models.Product
	nextID   uint
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[uint]models.Product),
		nextID:   1,
	}
}

// FindAll returns all products ordered by ID.
func (r *MockProductRepository) FindAll(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, clone(p))
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].ID < productList[j].ID })
	return productList, nil
}

// FindByID returns a copy of the product with the given ID.
func (r *MockProductRepository) FindByID(_ context.Context, id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	product = clone(product)
	return &product, nil
}

// Len returns the number of stored products.
func (r *MockProductRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}

// NewSession opens an in-memory session.
func (r *MockProductRepository) NewSession() Session {
	return &memorySession{repo: r}
}

type memorySession struct {
	unitOfWork
	repo *MockProductRepository
}

// Commit applies the staged operations under the repository lock. Nothing is
// written when any operation fails.
func (s *memorySession) Commit(ctx context.Context) error {
	ops, err := s.take()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r := s.repo
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range ops {
		if op.kind == opDelete && op.product.ID == 0 {
			return fmt.Errorf("%w: cannot delete a product without ID", ErrPersistence)
		}
	}

	nextID := r.nextID
	for _, op := range ops {
		switch op.kind {
		case opSave:
			if op.product.ID == 0 {
				op.product.ID = nextID
				nextID++
			} else if op.product.ID >= nextID {
				nextID = op.product.ID + 1
			}
			r.products[op.product.ID] = clone(*op.product)
		case opDelete:
			delete(r.products, op.product.ID)
		}
	}
	r.nextID = nextID
	return nil
}

func clone(p models.Product) models.Product {
	if p.Image != nil {
		image := *p.Image
		p.Image = &image
	}
	return p
}
