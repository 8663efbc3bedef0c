package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/catalog-service/internal/domain/category"
	"github.com/xenking/catalog-service/internal/domain/product"
	"github.com/xenking/catalog-service/internal/rates"
	"github.com/xenking/catalog-service/internal/storage/memory"
	"github.com/xenking/catalog-service/pkg/httpmiddleware"
)

type stubRates struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *stubRates) Rate(context.Context, string, string) (decimal.Decimal, error) {
	s.calls++
	return s.rate, s.err
}

type testEnv struct {
	router http.Handler
	rates  *stubRates
	catID  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cats := memory.NewCategoryRepository()
	products := memory.NewProductRepository(cats)
	stub := &stubRates{rate: decimal.RequireFromString("1.1555")}

	productSvc := product.NewService(products, stub, product.NewSeededCodeGenerator(42), product.Config{})
	categorySvc := category.NewService(cats)

	r := chi.NewRouter()
	r.Use(httpmiddleware.RequestID())
	NewHandler(Config{BaseCurrency: "EUR", QuoteCurrency: "USD"}, productSvc, categorySvc).Register(r)

	env := &testEnv{router: r, rates: stub}
	w := env.do(t, http.MethodPost, "/api/categories", `{"categoryName":"Tools"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	env.catID = "1"
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) create(t *testing.T, name, price string) map[string]any {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/products",
		`{"name":"`+name+`","priceEur":`+price+`,"description":"desc","isAvailable":true,"categoryId":"`+e.catID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products",
		`{"name":"Hammer","priceEur":100,"description":"Steel","isAvailable":null,"categoryId":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decode(t, w)
	code, _ := body["code"].(string)
	assert.Len(t, code, product.CodeLength)
	assert.Equal(t, "/api/products/"+code, w.Header().Get("Location"))
	assert.Equal(t, "Hammer", body["name"])
	assert.Equal(t, "Steel", body["description"])
	assert.Equal(t, "1", body["categoryId"])
	assert.Nil(t, body["isAvailable"])
	assert.Contains(t, w.Body.String(), `"priceUsd":115.55`)
	assert.Contains(t, w.Body.String(), `"priceEur":100`)
}

func TestCreateProduct_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		message string
		fields  []string
	}{
		{
			name:    "missing name",
			body:    `{"priceEur":10,"description":"d","categoryId":"1"}`,
			message: "Name can not be empty",
			fields:  []string{"name"},
		},
		{
			name:    "short name",
			body:    `{"name":"ab","priceEur":10,"description":"d","categoryId":"1"}`,
			message: "The name must be at least 3 characters long and maximum 15 characters long.",
			fields:  []string{"name"},
		},
		{
			name:    "long name",
			body:    `{"name":"abcdefghijklmnop","priceEur":10,"description":"d","categoryId":"1"}`,
			message: "The name must be at least 3 characters long and maximum 15 characters long.",
			fields:  []string{"name"},
		},
		{
			name:    "zero price",
			body:    `{"name":"Hammer","priceEur":0,"description":"d","categoryId":"1"}`,
			message: "Price must be greater than zero",
			fields:  []string{"priceEur"},
		},
		{
			name:    "huge exponent",
			body:    `{"name":"Hammer","priceEur":"1e50000000","description":"d","categoryId":"1"}`,
			message: msgPriceOutOfRange,
			fields:  []string{"priceEur"},
		},
		{
			name:    "price above maximum",
			body:    `{"name":"Hammer","priceEur":1000000000.01,"description":"d","categoryId":"1"}`,
			message: msgPriceOutOfRange,
			fields:  []string{"priceEur"},
		},
		{
			name:    "too many decimals",
			body:    `{"name":"Hammer","priceEur":"1.0000001","description":"d","categoryId":"1"}`,
			message: msgPriceOutOfRange,
			fields:  []string{"priceEur"},
		},
		{
			name:    "several fields",
			body:    `{"name":"Hammer","priceEur":-1}`,
			message: "Description can not be empty, Price must be greater than zero, Category ID can not be empty",
			fields:  []string{"description", "priceEur", "categoryId"},
		},
		{
			name:    "non numeric category",
			body:    `{"name":"Hammer","priceEur":1,"description":"d","categoryId":"abc"}`,
			message: "Category ID must be a positive number",
			fields:  []string{"categoryId"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/products", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			body := decode(t, w)
			assert.Equal(t, float64(400), body["code"])
			assert.Equal(t, tt.message, body["message"])
			assert.NotEmpty(t, body["requestId"])

			errs, _ := body["errors"].([]any)
			require.Len(t, errs, len(tt.fields))
			for i, f := range tt.fields {
				assert.Equal(t, f, errs[i].(map[string]any)["field"])
			}
		})
	}
	assert.Zero(t, env.rates.calls, "invalid input must not reach the service")
}

func TestCreateProduct_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{``, `[]`, `{"name":`, `{"priceEur":"abc"}`, `{"isAvailable":"yes"}`} {
		w := env.do(t, http.MethodPost, "/api/products", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}

	tests := []struct {
		body    string
		message string
	}{
		{body: `[]`, message: "malformed request body"},
		{body: `{"priceEur":"abc"}`, message: `field "priceEur": malformed request body`},
		{body: `{"isAvailable":"yes"}`, message: `field "isAvailable": malformed request body`},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodPost, "/api/products", tt.body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, tt.message, decode(t, w)["message"], "decoder details stay server side")
	}
}

func TestCreate_CategoryAndProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/categories", `{"categoryName":"Garden","unknown":[1,2]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"id":2,"categoryName":"Garden"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/products",
		`{"name":"Rake","priceEur":"12.50","description":"Steel","isAvailable":true,"categoryId":2,"extra":{"a":1}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Rake", body["name"])
	assert.Equal(t, "2", body["categoryId"])
	assert.Equal(t, true, body["isAvailable"])
	assert.Contains(t, w.Body.String(), `"priceUsd":14.45`)

	w = env.do(t, http.MethodPut, "/api/products/"+body["code"].(string),
		`{"name":"Rake","priceEur":"12.50","description":"Wood"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Wood", decode(t, w)["description"])
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products",
		`{"name":"Hammer","priceEur":10,"description":"d","categoryId":"99"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgUnknownCategory, decode(t, w)["message"])
}

func TestCreateProduct_RateUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.rates.err = errors.Wrap(rates.ErrUnavailable, "status=503")

	w := env.do(t, http.MethodPost, "/api/products",
		`{"name":"Hammer","priceEur":10,"description":"d","categoryId":"1"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, msgRateUnavailable, decode(t, w)["message"])

	w = env.do(t, http.MethodGet, "/api/products", "")
	assert.Equal(t, float64(0), decode(t, w)["totalItems"])
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "Hammer", "100")

	w := env.do(t, http.MethodGet, "/api/products/"+created["code"].(string), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created, decode(t, w))

	w = env.do(t, http.MethodGet, "/api/products/ZZZZZZZZZZ", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgProductNotFound, decode(t, w)["message"])
}

func TestUpdateProduct(t *testing.T) {
	env := newTestEnv(t)
	created := env.create(t, "Hammer", "100")
	code := created["code"].(string)
	callsAfterCreate := env.rates.calls

	// Same price: no rate lookup.
	w := env.do(t, http.MethodPut, "/api/products/"+code,
		`{"name":"Mallet","priceEur":100.00,"description":"Wood","isAvailable":false}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Mallet", body["name"])
	assert.Equal(t, false, body["isAvailable"])
	assert.Equal(t, code, body["code"])
	assert.Equal(t, callsAfterCreate, env.rates.calls)

	env.rates.rate = decimal.RequireFromString("1.10")
	w = env.do(t, http.MethodPut, "/api/products/"+code,
		`{"name":"Mallet","priceEur":150,"description":"Wood"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"priceUsd":165.00`)
	assert.Equal(t, "1", decode(t, w)["categoryId"])

	w = env.do(t, http.MethodPut, "/api/products/ZZZZZZZZZZ",
		`{"name":"Mallet","priceEur":150,"description":"Wood"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/products/"+code, `{"name":"","priceEur":150,"description":"Wood"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	code := env.create(t, "Hammer", "100")["code"].(string)

	w := env.do(t, http.MethodDelete, "/api/products/"+code, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, msgProductDeleted, decode(t, w)["message"])

	w = env.do(t, http.MethodGet, "/api/products/"+code, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/products/ZZZZZZZZZZ", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgProductNotFound, decode(t, w)["message"])
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	for range 10 {
		env.create(t, "Hammer", "10")
	}

	w := env.do(t, http.MethodGet, "/api/products?page=0&size=4", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["items"], 4)
	assert.Equal(t, float64(10), body["totalItems"])
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Equal(t, float64(4), body["size"])

	w = env.do(t, http.MethodGet, "/api/products", "")
	body = decode(t, w)
	assert.Equal(t, float64(product.DefaultPageSize), body["size"])
	assert.Len(t, body["items"], 10)

	w = env.do(t, http.MethodGet, "/api/products?size=1000", "")
	assert.Equal(t, float64(product.MaxPageSize), decode(t, w)["size"])

	w = env.do(t, http.MethodGet, "/api/products?page=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/products?page=4611686018427387904&size=3", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Empty(t, body["items"])
	assert.Equal(t, float64(10), body["totalItems"])
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Hammer", "10")

	w := env.do(t, http.MethodGet, "/api/categories/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"categoryName":"Tools"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/categories/1/products", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["totalItems"])

	w = env.do(t, http.MethodGet, "/api/categories/7/products", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/categories/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/categories", `{"categoryName":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_WriteMiddleware(t *testing.T) {
	var writes int
	count := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writes++
			next.ServeHTTP(w, r)
		})
	}

	cats := memory.NewCategoryRepository()
	svc := product.NewService(memory.NewProductRepository(cats), &stubRates{rate: decimal.NewFromInt(1)},
		product.NewSeededCodeGenerator(1), product.Config{})
	r := chi.NewRouter()
	NewHandler(Config{}, svc, category.NewService(cats)).Register(r, count)

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodGet, "/api/products", ""},
		{http.MethodPost, "/api/categories", `{"categoryName":"Tools"}`},
		{http.MethodGet, "/api/categories/1", ""},
		{http.MethodDelete, "/api/products/ZZZZZZZZZZ", ""},
	} {
		req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, writes)
}

func TestPriceField(t *testing.T) {
	assert.Equal(t, "priceEur", priceField("EUR"))
	assert.Equal(t, "priceUsd", priceField("usd"))
	assert.Equal(t, "price", priceField(""))
}
