package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"magazyn/internal/models"
	"magazyn/internal/services"
)

// ProductHandler handles HTTP requests for the product collection.
type ProductHandler struct {
	service *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service: service,
	}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products", h.HandleListProducts)
	router.Get("/inventory/report", h.HandleInventoryReport)
	router.Post("/products", h.HandleCreateProduct)
	router.Put("/products/:id", h.HandleUpdateProduct)
	router.Delete("/products/:id", h.HandleDeleteProduct)
}

// HandleListProducts returns all products matching the query parameters.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	query := models.ListQuery{
		ID:          c.Query("id"),
		Name:        c.Query("name"),
		Price:       c.Query("price"),
		Description: c.Query("description"),
		Quantity:    c.Query("quantity"),
		Unit:        c.Query("unit"),
		Sort:        c.Query("sort"),
	}

	products, err := h.service.ListProducts(c.Context(), query)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// The list endpoint responds with a bare string on 404,
			// unlike the other endpoints.
			return c.Status(fiber.StatusNotFound).JSON("No product matched the given parameters")
		}
		log.Printf("Error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
		})
	}
	return c.JSON(products)
}

// HandleInventoryReport returns the inventory valuation report.
func (h *ProductHandler) HandleInventoryReport(c *fiber.Ctx) error {
	report, err := h.service.InventoryReport(c.Context())
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "No data available for the report",
			})
		}
		log.Printf("Error generating inventory report: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not generate the inventory report",
		})
	}
	return c.JSON(report)
}

// HandleCreateProduct validates the request body and creates a product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil {
		log.Printf("Error parsing create request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	id, err := h.service.CreateProduct(c.Context(), body)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": verr.Message,
			})
		case errors.Is(err, services.ErrNameTaken):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Product name already exists",
			})
		default:
			log.Printf("Error creating product: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not create the product",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Product has been created",
		"productId": id.Hex(),
	})
}

// HandleUpdateProduct applies a partial update to a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil {
		log.Printf("Error parsing update request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if err := h.service.UpdateProduct(c.Context(), c.Params("id"), body); err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": verr.Message,
			})
		case errors.Is(err, services.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Product does not exist",
			})
		case errors.Is(err, services.ErrNameTaken):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Product name already exists",
			})
		default:
			log.Printf("Error updating product %s: %v", c.Params("id"), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not update the product",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Product has been updated",
	})
}

// HandleDeleteProduct removes a product once its stock is exhausted.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.Context(), c.Params("id")); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Product does not exist",
			})
		case errors.Is(err, services.ErrStillStocked):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Product is still available in stock",
			})
		default:
			log.Printf("Error deleting product %s: %v", c.Params("id"), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not delete the product",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Product has been deleted",
	})
}
