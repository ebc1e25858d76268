// Package upstream is the client for the FakeStore product API.
//
// Every method returns an error so callers can tell a missing product (ErrNotFound)
// from a failed request. Turning failures into empty results is left to the catalog
// service.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront-service/internal/domain"
)

// DefaultBaseURL is the public FakeStore API.
const DefaultBaseURL = "https://fakestoreapi.com"

var (
	ErrNotFound         = errors.New("upstream: product not found")
	ErrUnexpectedStatus = errors.New("upstream: unexpected response status")
)

// ListParams are the upstream's own list parameters. Price and text filtering are not
// supported upstream and are applied by the catalog query engine instead.
type ListParams struct {
	Limit    int // domain.NoLimit omits the parameter, 0 returns nothing
	Offset   int
	Sort     domain.SortOrder
	Category string // "" or domain.CategoryAll is not sent
}

// Client talks to the product API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client. A zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// FetchProducts lists products with the upstream's own parameters.
func (c *Client) FetchProducts(ctx context.Context, params ListParams) ([]domain.Product, error) {
	if params.Limit == 0 {
		return []domain.Product{}, nil
	}

	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Sort != domain.SortNone {
		q.Set("sort", string(params.Sort))
	}
	if params.Category != "" && params.Category != domain.CategoryAll {
		q.Set("category", params.Category)
	}

	endpoint := c.baseURL + "/products"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var products []domain.Product
	if err := c.getJSON(ctx, endpoint, &products); err != nil {
		return nil, fmt.Errorf("upstream: FetchProducts: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// FetchProduct retrieves a single product. ErrNotFound is returned for a 404 or an
// empty body, which is how the API answers for unknown ids.
func (c *Client) FetchProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product *domain.Product
	err := c.getJSON(ctx, fmt.Sprintf("%s/products/%d", c.baseURL, id), &product)
	if err != nil {
		return nil, fmt.Errorf("upstream: FetchProduct %d: %w", id, err)
	}
	if product == nil || product.ID == 0 {
		return nil, fmt.Errorf("upstream: FetchProduct %d: %w", id, ErrNotFound)
	}
	return product, nil
}

// FetchCategories lists the upstream category names, without the synthetic "all".
func (c *Client) FetchCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.getJSON(ctx, c.baseURL+"/products/categories", &categories); err != nil {
		return nil, fmt.Errorf("upstream: FetchCategories: %w", err)
	}
	return categories, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode < 200 || res.StatusCode > 299:
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
