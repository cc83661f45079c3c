package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"productapi/internal/repositories"
	"productapi/internal/services"
	"productapi/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Success messages returned by the mutating endpoints.
const (
	MsgCreated = "Product created successfully!"
	MsgUpdated = "Product updated successfully!"
	MsgDeleted = "Product deleted successfully!"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service *services.ProductService
	// strict switches client errors from 200 to 400/404 responses.
	strict bool
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, strict bool) *ProductHandler {
	return &ProductHandler{
		service: service,
		strict:  strict,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.All("/product", h.HandleIndex)

	productRoutes := router.Group("/product")
	productRoutes.Post("/create", h.HandleCreateProduct)
	productRoutes.Put("/update/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/delete/:id", h.HandleDeleteProduct)
	productRoutes.Get("/fetch-all", h.HandleFetchAll)
	productRoutes.Get("/fetch-one/:id", h.HandleFetchOne)
}

// HandleIndex reports which controller serves the product routes.
func (h *ProductHandler) HandleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"controller_name": "ProductController",
	})
}

// HandleCreateProduct validates the body and stores a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	params, err := validation.DecodeParams(c.Body())
	if err != nil {
		return h.respondError(c, "", err)
	}

	if _, err := h.service.CreateProduct(c.UserContext(), params); err != nil {
		return h.respondError(c, "", err)
	}
	return c.JSON(MsgCreated)
}

// HandleUpdateProduct overwrites an existing product with the body fields.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	rawID := c.Params("id")
	params, err := validation.DecodeParams(c.Body())
	if err != nil {
		return h.respondError(c, rawID, err)
	}

	// An unparseable id matches no product; the body is still validated first.
	id, _ := parseID(rawID)
	if _, err := h.service.UpdateProduct(c.UserContext(), id, params); err != nil {
		return h.respondError(c, rawID, err)
	}
	return c.JSON(MsgUpdated)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	rawID := c.Params("id")
	id, ok := parseID(rawID)
	if !ok {
		return h.respondError(c, rawID, unknownID(rawID))
	}

	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return h.respondError(c, rawID, err)
	}
	return c.JSON(MsgDeleted)
}

// HandleFetchAll returns every product as a JSON array.
func (h *ProductHandler) HandleFetchAll(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return h.respondError(c, "", err)
	}
	return c.JSON(products)
}

// HandleFetchOne returns a single product. In legacy mode a missing product
// is rendered as JSON null.
func (h *ProductHandler) HandleFetchOne(c *fiber.Ctx) error {
	rawID := c.Params("id")
	id, ok := parseID(rawID)
	if !ok {
		return h.fetchOneMissing(c, rawID)
	}

	product, err := h.service.GetProductByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return h.fetchOneMissing(c, rawID)
		}
		return h.respondError(c, rawID, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) fetchOneMissing(c *fiber.Ctx, rawID string) error {
	if h.strict {
		return h.message(c, fiber.StatusNotFound, notFoundMessage(rawID))
	}
	return c.JSON(nil)
}

// respondError maps pipeline errors to responses. Anything not answered here
// goes to the app error handler as a 500.
func (h *ProductHandler) respondError(c *fiber.Ctx, rawID string, err error) error {
	var fe *validation.FieldError
	switch {
	case errors.As(err, &fe):
		return h.message(c, fiber.StatusBadRequest, fe.Error())
	case errors.Is(err, validation.ErrMalformedBody) && h.strict:
		return h.message(c, fiber.StatusBadRequest, "Request body must be a JSON object!")
	case errors.Is(err, repositories.ErrProductNotFound) && h.strict:
		return h.message(c, fiber.StatusNotFound, notFoundMessage(rawID))
	default:
		log.Printf("Error handling %s %s: %v", c.Method(), c.Path(), err)
		return err
	}
}

// message writes the "Message: ..." JSON string. Legacy mode always uses 200.
func (h *ProductHandler) message(c *fiber.Ctx, strictStatus int, msg string) error {
	status := fiber.StatusOK
	if h.strict {
		status = strictStatus
	}
	return c.Status(status).JSON("Message: " + msg)
}

func notFoundMessage(rawID string) string {
	return fmt.Sprintf("Product with id %s not found!", rawID)
}

func unknownID(rawID string) error {
	return fmt.Errorf("product with ID %s: %w", rawID, repositories.ErrProductNotFound)
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
