package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"magazyn/internal/handlers"
	"magazyn/internal/middleware"
	"magazyn/internal/models"
	"magazyn/internal/repositories"
	"magazyn/internal/services"
)

// setupApp builds a Fiber app backed by the in-memory repository, with
// the full product route surface and middleware registered.
func setupApp() (*fiber.App, *repositories.MockProductRepository) {
	repo := repositories.NewMockProductRepository()
	service := services.NewProductService(repo, nil) // nil event publisher
	handler := handlers.NewProductHandler(service)

	app := fiber.New()
	app.Use(middleware.RequestID())
	handler.RegisterRoutes(app)

	return app, repo
}

// seedProducts populates the repository for read tests.
func seedProducts(repo *repositories.MockProductRepository) {
	products := []models.Product{
		{Name: "Bolt", Price: 0.5, Description: "M6 bolt", Quantity: 100, Unit: "pcs"},
		{Name: "Nut", Price: 0.25, Description: "M6 nut", Quantity: 40, Unit: "pcs"},
		{Name: "Paint", Price: 12.0, Description: "White paint", Quantity: 0, Unit: "l"},
	}
	for i := range products {
		if _, err := repo.Insert(context.Background(), &products[i]); err != nil {
			log.Printf("Failed to seed product %s: %v", products[i].Name, err)
		}
	}
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1) // -1 for no timeout
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

func TestListProducts(t *testing.T) {
	app, repo := setupApp()
	seedProducts(repo)

	t.Run("AllProducts", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/products", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(middleware.HeaderRequestID))

		var products []models.Product
		decodeBody(t, resp, &products)
		assert.Len(t, products, 3)
	})

	t.Run("FilterByName", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/products?name=Bolt", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var products []models.Product
		decodeBody(t, resp, &products)
		assert.Len(t, products, 1)
		assert.Equal(t, "Bolt", products[0].Name)
		assert.Equal(t, 0.5, products[0].Price)
	})

	t.Run("FilterByPriceAndUnit", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/products?price=0.25&unit=pcs", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var products []models.Product
		decodeBody(t, resp, &products)
		assert.Len(t, products, 1)
		assert.Equal(t, "Nut", products[0].Name)
	})

	t.Run("SortDescending", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/products?sort=price:desc", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var products []models.Product
		decodeBody(t, resp, &products)
		assert.Len(t, products, 3)
		for i := 1; i < len(products); i++ {
			assert.GreaterOrEqual(t, products[i-1].Price, products[i].Price)
		}
	})

	t.Run("SortAscendingByDefault", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/products?sort=quantity", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var products []models.Product
		decodeBody(t, resp, &products)
		assert.Len(t, products, 3)
		for i := 1; i < len(products); i++ {
			assert.LessOrEqual(t, products[i-1].Quantity, products[i].Quantity)
		}
	})

	t.Run("NoMatchIsBareString404", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/products?name=Screw", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		// The list endpoint answers 404 with a bare JSON string.
		var message string
		decodeBody(t, resp, &message)
		assert.NotEmpty(t, message)
	})

	t.Run("UnparseablePriceMatchesNothing", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/products?price=cheap", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestInventoryReport(t *testing.T) {
	t.Run("TotalsOverAllProducts", func(t *testing.T) {
		app, repo := setupApp()
		seedProducts(repo)

		resp := doJSON(t, app, http.MethodGet, "/inventory/report", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report models.InventoryReport
		decodeBody(t, resp, &report)
		assert.Equal(t, 3, report.TotalProducts)
		// 0.5*100 + 0.25*40 + 12*0
		assert.InDelta(t, 60.0, report.TotalValue, 1e-9)
		assert.Len(t, report.Products, 3)
		for _, line := range report.Products {
			assert.NotEmpty(t, line.Name)
		}
	})

	t.Run("EmptyCollectionIs404", func(t *testing.T) {
		app, _ := setupApp()

		resp := doJSON(t, app, http.MethodGet, "/inventory/report", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Contains(t, body, "message")
	})
}

func TestCreateProduct(t *testing.T) {
	app, _ := setupApp()

	t.Run("Created", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/products", map[string]interface{}{
			"name":        "Washer",
			"price":       0.1,
			"description": "M6 washer",
			"quantity":    500,
			"unit":        "pcs",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.NotEmpty(t, body["productId"])
		assert.NotEmpty(t, body["message"])
	})

	t.Run("MissingFields", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/products", map[string]interface{}{
			"name":  "Incomplete",
			"price": 1.0,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "Missing required fields", body["message"])
	})

	t.Run("ExtraFields", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/products", map[string]interface{}{
			"name":        "Screw",
			"price":       0.2,
			"description": "M6 screw",
			"quantity":    10,
			"unit":        "pcs",
			"color":       "silver",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("NonPositivePriceIsRejectedAndNotPersisted", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/products", map[string]interface{}{
			"name":        "Freebie",
			"price":       0,
			"description": "Free item",
			"quantity":    10,
			"unit":        "pcs",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodGet, "/products?name=Freebie", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("DuplicateName", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/products", map[string]interface{}{
			"name":        "Washer",
			"price":       0.2,
			"description": "Another washer",
			"quantity":    5,
			"unit":        "pcs",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "Product name already exists", body["message"])

		// The original record is still the only one with that name.
		resp = doJSON(t, app, http.MethodGet, "/products?name=Washer", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var products []models.Product
		decodeBody(t, resp, &products)
		assert.Len(t, products, 1)
		assert.Equal(t, "M6 washer", products[0].Description)
	})
}

func TestUpdateProduct(t *testing.T) {
	app, repo := setupApp()
	seedProducts(repo)

	bolt, err := repo.FindByName(context.Background(), "Bolt")
	assert.NoError(t, err)
	assert.NotNil(t, bolt)

	t.Run("EmptyBodyIsRejectedAndRecordUnchanged", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/products/"+bolt.ID.Hex(), map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		unchanged, err := repo.FindByID(context.Background(), bolt.ID)
		assert.NoError(t, err)
		assert.Equal(t, *bolt, *unchanged)
	})

	t.Run("UnknownIDIs404", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/products/ffffffffffffffffffffffff", map[string]interface{}{
			"price": 1.0,
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("PartialMergeKeepsOtherFields", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/products/"+bolt.ID.Hex(), map[string]interface{}{
			"price": 0.75,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		updated, err := repo.FindByID(context.Background(), bolt.ID)
		assert.NoError(t, err)
		assert.Equal(t, 0.75, updated.Price)
		assert.Equal(t, bolt.Name, updated.Name)
		assert.Equal(t, bolt.Quantity, updated.Quantity)
	})

	t.Run("ZeroQuantityCanBeSet", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/products/"+bolt.ID.Hex(), map[string]interface{}{
			"quantity": 0,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		updated, err := repo.FindByID(context.Background(), bolt.ID)
		assert.NoError(t, err)
		assert.Equal(t, 0, updated.Quantity)
	})
}

func TestDeleteProduct(t *testing.T) {
	app, repo := setupApp()
	seedProducts(repo)

	t.Run("UnknownIDIs404", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, "/products/ffffffffffffffffffffffff", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("StockedProductIsBlocked", func(t *testing.T) {
		nut, err := repo.FindByName(context.Background(), "Nut")
		assert.NoError(t, err)

		resp := doJSON(t, app, http.MethodDelete, "/products/"+nut.ID.Hex(), nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()

		// The record still exists afterwards.
		still, err := repo.FindByID(context.Background(), nut.ID)
		assert.NoError(t, err)
		assert.NotNil(t, still)
	})

	t.Run("OutOfStockProductIsDeleted", func(t *testing.T) {
		paint, err := repo.FindByName(context.Background(), "Paint")
		assert.NoError(t, err)

		resp := doJSON(t, app, http.MethodDelete, "/products/"+paint.ID.Hex(), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		gone, err := repo.FindByID(context.Background(), paint.ID)
		assert.NoError(t, err)
		assert.Nil(t, gone)
	})
}

// TestProductLifecycle walks a product through create, list, a blocked
// delete, a stock drain and the final delete.
func TestProductLifecycle(t *testing.T) {
	app, _ := setupApp()

	// Create
	resp := doJSON(t, app, http.MethodPost, "/products", map[string]interface{}{
		"name":        "Bolt",
		"price":       0.5,
		"description": "M6 bolt",
		"quantity":    100,
		"unit":        "pcs",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]string
	decodeBody(t, resp, &created)
	productID := created["productId"]
	assert.NotEmpty(t, productID)

	// List by name returns exactly that record
	resp = doJSON(t, app, http.MethodGet, "/products?name=Bolt", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	decodeBody(t, resp, &products)
	assert.Len(t, products, 1)
	assert.Equal(t, productID, products[0].ID.Hex())

	// Delete is blocked while stock remains
	resp = doJSON(t, app, http.MethodDelete, "/products/"+productID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Drain the stock
	resp = doJSON(t, app, http.MethodPut, "/products/"+productID, map[string]interface{}{
		"quantity": 0,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Delete now succeeds
	resp = doJSON(t, app, http.MethodDelete, "/products/"+productID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// A follow-up lookup by id is a 404
	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/products?id=%s", productID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
