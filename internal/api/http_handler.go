package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/domain"
)

// CatalogService is the read side of the storefront.
type CatalogService interface {
	Page(ctx context.Context, params domain.FilterParams) (catalog.PageView, error)
	Product(ctx context.Context, id int64) (*domain.Product, bool)
	Categories(ctx context.Context) []string
}

// CartRegistry hands out the cart of a session.
type CartRegistry interface {
	Get(ctx context.Context, sessionID string) *cart.Store
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog  CatalogService
	carts    CartRegistry
	validate *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(cs CatalogService, cr CartRegistry) *HTTPHandler {
	return &HTTPHandler{
		catalog:  cs,
		carts:    cr,
		validate: validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

// --- Catalog Handlers ---

// ProductListQuery is the validated form of the product list query string.
type ProductListQuery struct {
	Search   string   `validate:"max=200"`
	Sort     string   `validate:"omitempty,oneof=asc desc"`
	Category string   `validate:"max=100"`
	MinPrice *float64 `validate:"omitempty,gte=0"`
	MaxPrice *float64 `validate:"omitempty,gte=0"`
	Offset   int      `validate:"gte=0"`
	Limit    int      `validate:"gte=-1,lte=100"` // -1 is domain.NoLimit
}

// FilterParams converts the query into engine parameters.
func (q ProductListQuery) FilterParams() domain.FilterParams {
	return domain.FilterParams{
		Search:   q.Search,
		Category: q.Category,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Sort:     domain.SortOrder(q.Sort),
		Offset:   q.Offset,
		Limit:    q.Limit,
	}
}

var errMinAboveMax = errors.New("minPrice cannot exceed maxPrice")

// parseProductListQuery reads the recognized parameters. Malformed numbers are
// rejected here so the query engine only ever sees validated values.
func parseProductListQuery(values url.Values) (ProductListQuery, error) {
	q := ProductListQuery{
		Search:   strings.TrimSpace(values.Get(catalog.ParamSearch)),
		Sort:     strings.ToLower(values.Get(catalog.ParamSort)),
		Category: values.Get(catalog.ParamCategory),
		Limit:    domain.DefaultPageSize,
	}

	parsePrice := func(name string) (*float64, error) {
		raw := values.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("Invalid " + name + " format")
		}
		return &v, nil
	}
	var err error
	if q.MinPrice, err = parsePrice(catalog.ParamMinPrice); err != nil {
		return q, err
	}
	if q.MaxPrice, err = parsePrice(catalog.ParamMaxPrice); err != nil {
		return q, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return q, errMinAboveMax
	}

	if raw := values.Get(catalog.ParamOffset); raw != "" {
		if q.Offset, err = strconv.Atoi(raw); err != nil {
			return q, errors.New("Invalid offset format")
		}
	}
	switch raw := values.Get(catalog.ParamLimit); raw {
	case "":
	case "all":
		q.Limit = domain.NoLimit
	default:
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			return q, errors.New("Invalid limit format")
		}
	}
	return q, nil
}

// Pagination describes the slice of the filtered catalog that was returned.
type Pagination struct {
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// PageLinks are ready-to-use URLs of the neighbouring pages, empty when there is none.
type PageLinks struct {
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`
}

// ProductListResponse is the body of GET /api/v1/products.
type ProductListResponse struct {
	Data       []domain.Product `json:"data"`
	Pagination Pagination       `json:"pagination"`
	Categories []string         `json:"categories"`
	Links      PageLinks        `json:"links"`
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	query, err := parseProductListQuery(values)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(query); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	view, err := h.catalog.Page(r.Context(), query.FilterParams())
	if err != nil {
		log.Printf("ERROR: ListProducts catalog page failed: %v", err)
		respondWithError(w, http.StatusServiceUnavailable, "Failed to retrieve products")
		return
	}

	totalPages := 0
	switch {
	case view.Total == 0 || query.Limit == 0:
	case query.Limit == domain.NoLimit:
		totalPages = 1
	default:
		totalPages = (view.Total + query.Limit - 1) / query.Limit
	}

	next, prev := catalog.PageLinks(values, query.Offset, query.Limit, view.Total)
	response := ProductListResponse{
		Data: view.Products,
		Pagination: Pagination{
			Offset:     query.Offset,
			Limit:      query.Limit,
			TotalItems: view.Total,
			TotalPages: totalPages,
		},
		Categories: view.Categories,
		Links:      PageLinks{Next: productsLink(next), Prev: productsLink(prev)},
	}
	respondWithJSON(w, http.StatusOK, response)
}

func productsLink(encoded string) string {
	if encoded == "" {
		return ""
	}
	return "/api/v1/products?" + encoded
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}

	product, found := h.catalog.Product(r.Context(), productID)
	if !found {
		respondWithError(w, http.StatusNotFound, "product not found")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.catalog.Categories(r.Context()))
}

func parseProductID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "productId")
	productID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return 0, false
	}
	return productID, true
}

// --- Route Registration ---

// requestTimeout bounds every route except the cart event stream.
const requestTimeout = 60 * time.Second

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/api/v1/categories", h.ListCategories)
		r.Route("/api/v1/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{productId}", h.GetProductByID)
		})
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Get("/events", h.StreamCartEvents) // long-lived, no request timeout
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Route("/items/{productId}", func(r chi.Router) {
				r.Delete("/", h.RemoveCartItem)
				r.Post("/increase", h.IncreaseCartItem)
				r.Post("/decrease", h.DecreaseCartItem)
			})
		})
	})
}
