package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"productapi/internal/metrics"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/validation"

	"github.com/google/uuid"
)

// Product event types, also used as routing keys.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// EventPublisher delivers serialized events to a broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProductEvent is published after a product change has been committed.
type ProductEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	ProductID  uint            `json:"product_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Product    *models.Product `json:"product,omitempty"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	sessions  repositories.SessionFactory
	publisher EventPublisher
	metrics   *metrics.Metrics
}

// NewProductService creates a new ProductService. publisher and m may be nil.
func NewProductService(repo repositories.ProductRepository, sessions repositories.SessionFactory, publisher EventPublisher, m *metrics.Metrics) *ProductService {
	return &ProductService{
		repo:      repo,
		sessions:  sessions,
		publisher: publisher,
		metrics:   m,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) (products []models.Product, err error) {
	defer s.observe("fetch_all", time.Now(), &err)
	return s.repo.FindAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (product *models.Product, err error) {
	defer s.observe("fetch_one", time.Now(), &err)
	return s.find(ctx, id)
}

// CreateProduct validates params and stores them as a new product.
func (s *ProductService) CreateProduct(ctx context.Context, params validation.Params) (product *models.Product, err error) {
	defer s.observe("create", time.Now(), &err)

	in, fe := parseInput(params, true)
	if fe != nil {
		return nil, fe
	}

	product = &models.Product{}
	product.ApplyCreate(in)
	if err := s.commit(ctx, func(session repositories.Session) { session.Stage(product) }); err != nil {
		return nil, err
	}

	s.publish(EventProductCreated, product.ID, product)
	return product, nil
}

// UpdateProduct overwrites name, price, description and qty of an existing
// product. The body is validated before the product is looked up. The image
// is never changed.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, params validation.Params) (product *models.Product, err error) {
	defer s.observe("update", time.Now(), &err)

	in, fe := parseInput(params, false)
	if fe != nil {
		return nil, fe
	}

	product, err = s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	product.ApplyUpdate(in)
	if err := s.commit(ctx, func(session repositories.Session) { session.Stage(product) }); err != nil {
		return nil, err
	}

	s.publish(EventProductUpdated, product.ID, product)
	return product, nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) (err error) {
	defer s.observe("delete", time.Now(), &err)

	product, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.commit(ctx, func(session repositories.Session) { session.Remove(product) }); err != nil {
		return err
	}

	s.publish(EventProductDeleted, id, nil)
	return nil
}

func (s *ProductService) find(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return nil, fmt.Errorf("product with ID %d: %w", id, err)
		}
		return nil, err
	}
	return product, nil
}

// commit runs stage against a fresh session and commits it. The session is
// always released, whether the commit succeeds or not.
func (s *ProductService) commit(ctx context.Context, stage func(repositories.Session)) error {
	session := s.sessions.NewSession()
	defer session.Rollback()

	stage(session)
	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit product changes: %w", err)
	}
	return nil
}

// parseInput validates the request fields in their fixed order and stops at
// the first failure.
func parseInput(params validation.Params, withImage bool) (models.ProductInput, *validation.FieldError) {
	var (
		in models.ProductInput
		fe *validation.FieldError
	)
	if in.Name, fe = params.String("name", "name"); fe != nil {
		return in, fe
	}
	if in.Price, fe = params.Int("price", "price"); fe != nil {
		return in, fe
	}
	if in.Description, fe = params.String("description", "description"); fe != nil {
		return in, fe
	}
	if in.Qty, fe = params.Int("qty", "quantity"); fe != nil {
		return in, fe
	}
	if withImage {
		if in.Image, fe = params.String("image", "image path"); fe != nil {
			return in, fe
		}
	}
	return in, nil
}

func (s *ProductService) publish(eventType string, productID uint, product *models.Product) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(ProductEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		ProductID:  productID,
		OccurredAt: time.Now().UTC(),
		Product:    product,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for product %d: %v", eventType, productID, err)
		return
	}

	err = s.publisher.Publish(eventType, body)
	s.metrics.EventPublished(eventType, err)
	if err != nil {
		log.Printf("Warning: Failed to publish %s event for product %d: %v", eventType, productID, err)
	}
}

func (s *ProductService) observe(operation string, started time.Time, errp *error) {
	s.metrics.Observe(operation, outcome(*errp), started)
}

func outcome(err error) string {
	var fe *validation.FieldError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &fe):
		return metrics.OutcomeInvalid
	case errors.Is(err, repositories.ErrProductNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
