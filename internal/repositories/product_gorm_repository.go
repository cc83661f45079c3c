package repositories

import (
	"context"
	"errors"
	"fmt"

	"productapi/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository and SessionFactory.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// FindAll retrieves all products from the database, ordered by ID.
func (r *GORMProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to get all products: %w", ErrPersistence, err)
	}
	return products, nil
}

// FindByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: failed to get product by ID %d: %w", ErrPersistence, id, err)
	}
	return &product, nil
}

// NewSession opens a session whose Commit runs in a single transaction.
func (r *GORMProductRepository) NewSession() Session {
	return &gormSession{db: r.db}
}

type gormSession struct {
	unitOfWork
	db *gorm.DB
}

// Commit writes the staged operations inside one transaction.
func (s *gormSession) Commit(ctx context.Context) error {
	ops, err := s.take()
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			switch op.kind {
			case opSave:
				// Save inserts when the primary key is zero and updates every column otherwise.
				if err := tx.Save(op.product).Error; err != nil {
					return fmt.Errorf("failed to save product: %w", err)
				}
			case opDelete:
				if err := tx.Delete(op.product).Error; err != nil {
					return fmt.Errorf("failed to delete product %d: %w", op.product.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}
