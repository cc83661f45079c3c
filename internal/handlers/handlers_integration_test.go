package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"productapi/internal/database"
	"productapi/internal/handlers"
	"productapi/internal/metrics"
	"productapi/internal/models"
	"productapi/internal/repositories"
	"productapi/internal/server"
	"productapi/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite.
func setupApp(t *testing.T, strict bool) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, "silent")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	repo := repositories.NewGORMProductRepository(db)
	registry := prometheus.NewRegistry()

	return server.NewApp(server.Dependencies{
		ProductService: services.NewProductService(repo, repo, nil, metrics.New(registry)),
		StrictStatus:   strict,
		Gatherer:       registry,
		HealthChecks: map[string]handlers.HealthCheck{
			"database": func() error { return database.Ping(db) },
			"events":   nil,
		},
		LogOutput: io.Discard,
	})
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	return resp.StatusCode, string(raw)
}

func fetchAll(t *testing.T, app *fiber.App) []models.Product {
	t.Helper()
	status, body := doRequest(t, app, http.MethodGet, "/product/fetch-all", "")
	require.Equal(t, http.StatusOK, status)

	var products []models.Product
	require.NoError(t, json.Unmarshal([]byte(body), &products))
	return products
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

const penBody = `{"name":"Pen","price":10,"description":"Blue pen","qty":5,"image":"/img/pen.png"}`

func TestIndex(t *testing.T) {
	app := setupApp(t, false)

	status, body := doRequest(t, app, http.MethodGet, "/product", "")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"controller_name":"ProductController"}`, body)
}

func TestCreateAndFetchAll(t *testing.T) {
	app := setupApp(t, false)

	status, body := doRequest(t, app, http.MethodPost, "/product/create", penBody)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, jsonString(handlers.MsgCreated), body)

	products := fetchAll(t, app)
	require.Len(t, products, 1)
	pen := products[0]
	assert.Positive(t, pen.ID)
	assert.Equal(t, "Pen", pen.Name)
	assert.Equal(t, int64(10), pen.Price)
	assert.Equal(t, "Blue pen", pen.Description)
	assert.Equal(t, int64(5), pen.Qty)
	assert.Equal(t, "/img/pen.png", pen.ImagePath())

	status, body = doRequest(t, app, http.MethodGet, fmt.Sprintf("/product/fetch-one/%d", pen.ID), "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"name":"Pen","price":10,"description":"Blue pen","qty":5,"image":"/img/pen.png"}`, pen.ID), body)
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	app := setupApp(t, false)

	for i := 0; i < 3; i++ {
		status, _ := doRequest(t, app, http.MethodPost, "/product/create", penBody)
		require.Equal(t, http.StatusOK, status)
	}

	seen := map[uint]bool{}
	for _, p := range fetchAll(t, app) {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestCreateValidationFailures(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		contains []string
	}{
		{name: "missing price", body: `{"name":"Pen"}`, contains: []string{"price", "missing"}},
		{name: "missing name", body: `{"price":10}`, contains: []string{"name", "missing"}},
		{name: "string price", body: `{"name":"Pen","price":"10"}`, contains: []string{"price", "must be an integer"}},
		{name: "float qty", body: `{"name":"Pen","price":1,"description":"d","qty":2.5,"image":"i"}`, contains: []string{"quantity", "must be an integer"}},
		{name: "numeric name", body: `{"name":12}`, contains: []string{"name", "must be a string"}},
		{
			name:     "long image",
			body:     fmt.Sprintf(`{"name":"Pen","price":1,"description":"d","qty":2,"image":%q}`, strings.Repeat("x", 256)),
			contains: []string{"image path", "shorter than 255 characters"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, strict := range []bool{false, true} {
				app := setupApp(t, strict)

				status, body := doRequest(t, app, http.MethodPost, "/product/create", tc.body)

				if strict {
					assert.Equal(t, http.StatusBadRequest, status)
				} else {
					assert.Equal(t, http.StatusOK, status)
				}
				var msg string
				require.NoError(t, json.Unmarshal([]byte(body), &msg))
				assert.True(t, strings.HasPrefix(msg, "Message: Product "), msg)
				for _, want := range tc.contains {
					assert.Contains(t, msg, want)
				}
				assert.Empty(t, fetchAll(t, app), "nothing may be persisted")
			}
		})
	}
}

func TestUpdateProduct(t *testing.T) {
	app := setupApp(t, false)
	doRequest(t, app, http.MethodPost, "/product/create", penBody)
	id := fetchAll(t, app)[0].ID

	body := `{"name":"Pencil","price":3,"description":"Grey pencil","qty":7,"image":"/img/ignored.png"}`
	status, resp := doRequest(t, app, http.MethodPut, fmt.Sprintf("/product/update/%d", id), body)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, jsonString(handlers.MsgUpdated), resp)

	products := fetchAll(t, app)
	require.Len(t, products, 1)
	assert.Equal(t, id, products[0].ID)
	assert.Equal(t, "Pencil", products[0].Name)
	assert.Equal(t, int64(3), products[0].Price)
	assert.Equal(t, int64(7), products[0].Qty)
	assert.Equal(t, "/img/pen.png", products[0].ImagePath(), "image is not updatable")
}

func TestUpdateValidationFailureKeepsRecord(t *testing.T) {
	app := setupApp(t, false)
	doRequest(t, app, http.MethodPost, "/product/create", penBody)
	id := fetchAll(t, app)[0].ID

	status, body := doRequest(t, app, http.MethodPut, fmt.Sprintf("/product/update/%d", id), `{"name":"Pencil"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, jsonString("Message: Product price is missing!"), body)
	assert.Equal(t, "Pen", fetchAll(t, app)[0].Name)
}

func TestUpdateMissingProduct(t *testing.T) {
	t.Run("legacy", func(t *testing.T) {
		app := setupApp(t, false)

		status, body := doRequest(t, app, http.MethodPut, "/product/update/999", penBody)

		assert.Equal(t, http.StatusInternalServerError, status)
		var resp map[string]string
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.Contains(t, resp["error"], "not found")
	})

	t.Run("strict", func(t *testing.T) {
		app := setupApp(t, true)

		status, body := doRequest(t, app, http.MethodPut, "/product/update/999", penBody)

		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, jsonString("Message: Product with id 999 not found!"), body)
	})
}

func TestUpdateMissingProductValidatesBodyFirst(t *testing.T) {
	for _, strict := range []bool{false, true} {
		app := setupApp(t, strict)

		for _, path := range []string{"/product/update/999", "/product/update/abc"} {
			status, body := doRequest(t, app, http.MethodPut, path, `{"name":"Pen"}`)

			if strict {
				assert.Equal(t, http.StatusBadRequest, status, path)
			} else {
				assert.Equal(t, http.StatusOK, status, path)
			}
			assert.JSONEq(t, jsonString("Message: Product price is missing!"), body, path)
		}
	}
}

func TestCreateLengthCountsCharacters(t *testing.T) {
	app := setupApp(t, false)

	name := strings.Repeat("é", 200)
	status, body := doRequest(t, app, http.MethodPost, "/product/create",
		fmt.Sprintf(`{"name":%q,"price":1,"description":"d","qty":1,"image":"i"}`, name))
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, jsonString(handlers.MsgCreated), body)
	assert.Equal(t, name, fetchAll(t, app)[0].Name)

	status, body = doRequest(t, app, http.MethodPost, "/product/create",
		fmt.Sprintf(`{"name":%q,"price":1,"description":"d","qty":1,"image":"i"}`, strings.Repeat("é", 256)))
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, jsonString("Message: Product name must be shorter than 255 characters!"), body)
}

func TestDeleteThenFetchOne(t *testing.T) {
	for _, strict := range []bool{false, true} {
		app := setupApp(t, strict)
		doRequest(t, app, http.MethodPost, "/product/create", penBody)
		doRequest(t, app, http.MethodPost, "/product/create", penBody)
		id := fetchAll(t, app)[0].ID

		status, body := doRequest(t, app, http.MethodDelete, fmt.Sprintf("/product/delete/%d", id), "")
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, jsonString(handlers.MsgDeleted), body)

		status, body = doRequest(t, app, http.MethodGet, fmt.Sprintf("/product/fetch-one/%d", id), "")
		if strict {
			assert.Equal(t, http.StatusNotFound, status)
			assert.JSONEq(t, jsonString(fmt.Sprintf("Message: Product with id %d not found!", id)), body)
		} else {
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, "null", body)
		}

		assert.Len(t, fetchAll(t, app), 1, "fetch-all counts created minus deleted")
	}
}

func TestDeleteMissingProduct(t *testing.T) {
	status, _ := doRequest(t, setupApp(t, false), http.MethodDelete, "/product/delete/42", "")
	assert.Equal(t, http.StatusInternalServerError, status)

	status, body := doRequest(t, setupApp(t, true), http.MethodDelete, "/product/delete/42", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "not found")
}

func TestNonNumericID(t *testing.T) {
	app := setupApp(t, false)

	status, body := doRequest(t, app, http.MethodGet, "/product/fetch-one/abc", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "null", body)

	status, body = doRequest(t, setupApp(t, true), http.MethodGet, "/product/fetch-one/abc", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, jsonString("Message: Product with id abc not found!"), body)
}

func TestMalformedBody(t *testing.T) {
	status, _ := doRequest(t, setupApp(t, false), http.MethodPost, "/product/create", `[1,2,3]`)
	assert.Equal(t, http.StatusInternalServerError, status)

	status, body := doRequest(t, setupApp(t, true), http.MethodPost, "/product/create", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, jsonString("Message: Request body must be a JSON object!"), body)
}

func TestFetchAllEmpty(t *testing.T) {
	status, body := doRequest(t, setupApp(t, false), http.MethodGet, "/product/fetch-all", "")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)
}

func TestHealth(t *testing.T) {
	status, body := doRequest(t, setupApp(t, false), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, status)
	var resp map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["database"])
	assert.Equal(t, "disabled", resp["events"])
}

func TestHealthDegraded(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	app := server.NewApp(server.Dependencies{
		ProductService: services.NewProductService(repo, repo, nil, nil),
		HealthChecks: map[string]handlers.HealthCheck{
			"database": func() error { return errors.New("connection refused") },
		},
		LogOutput: io.Discard,
	})

	status, body := doRequest(t, app, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"status":"degraded"`)
}

func TestMetricsEndpoint(t *testing.T) {
	app := setupApp(t, false)
	doRequest(t, app, http.MethodPost, "/product/create", penBody)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `product_operations_total{operation="create",outcome="success"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	status, body := doRequest(t, setupApp(t, false), http.MethodGet, "/product/unknown", "")

	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Not Found")
}
