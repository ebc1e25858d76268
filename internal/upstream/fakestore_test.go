package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

const productsJSON = `[
  {"id":1,"title":"Fjallraven Backpack","price":109.95,"description":"Your perfect pack","category":"men's clothing","image":"https://fakestoreapi.com/img/1.jpg","rating":{"rate":3.9,"count":120}},
  {"id":5,"title":"Dragon Bracelet","price":695,"description":"Gold and silver","category":"jewelery","image":"https://fakestoreapi.com/img/5.jpg","rating":{"rate":4.6,"count":400}}
]`

// recordingServer serves canned responses by path and remembers the last query it saw.
type recordingServer struct {
	mu        sync.Mutex
	lastQuery url.Values
	requests  int
}

func (rs *recordingServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		rs.record(r)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productsJSON))
	})
	mux.HandleFunc("/products/categories", func(w http.ResponseWriter, r *http.Request) {
		rs.record(r)
		w.Write([]byte(`["electronics","jewelery","men's clothing","women's clothing"]`))
	})
	mux.HandleFunc("/products/1", func(w http.ResponseWriter, r *http.Request) {
		rs.record(r)
		w.Write([]byte(`{"id":1,"title":"Fjallraven Backpack","price":109.95,"category":"men's clothing","rating":{"rate":3.9,"count":120}}`))
	})
	mux.HandleFunc("/products/999", func(w http.ResponseWriter, r *http.Request) {
		rs.record(r)
		w.WriteHeader(http.StatusOK) // the API answers unknown ids with an empty body
	})
	mux.HandleFunc("/products/404", func(w http.ResponseWriter, r *http.Request) {
		rs.record(r)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/products/500", func(w http.ResponseWriter, r *http.Request) {
		rs.record(r)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	return mux
}

func (rs *recordingServer) record(r *http.Request) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.lastQuery = r.URL.Query()
	rs.requests++
}

func setupTestClient(t *testing.T) (*Client, *recordingServer) {
	rs := &recordingServer{}
	server := httptest.NewServer(rs.handler(t))
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", 5*time.Second), rs
}

func TestClient_FetchProducts(t *testing.T) {
	client, rs := setupTestClient(t)

	products, err := client.FetchProducts(context.Background(), ListParams{Limit: domain.NoLimit})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, 109.95, products[0].Price)
	assert.Equal(t, domain.Rating{Rate: 3.9, Count: 120}, products[0].Rating)
	assert.Empty(t, rs.lastQuery, "NoLimit must not send any parameters")
}

func TestClient_FetchProducts_Params(t *testing.T) {
	client, rs := setupTestClient(t)

	_, err := client.FetchProducts(context.Background(), ListParams{
		Limit:    5,
		Offset:   10,
		Sort:     domain.SortDesc,
		Category: "jewelery",
	})
	require.NoError(t, err)
	assert.Equal(t, "5", rs.lastQuery.Get("limit"))
	assert.Equal(t, "10", rs.lastQuery.Get("offset"))
	assert.Equal(t, "desc", rs.lastQuery.Get("sort"))
	assert.Equal(t, "jewelery", rs.lastQuery.Get("category"))

	_, err = client.FetchProducts(context.Background(), ListParams{Limit: 5, Category: domain.CategoryAll})
	require.NoError(t, err)
	_, present := rs.lastQuery["category"]
	assert.False(t, present)
}

func TestClient_FetchProducts_ZeroLimitSkipsRequest(t *testing.T) {
	client, rs := setupTestClient(t)

	products, err := client.FetchProducts(context.Background(), ListParams{Limit: 0})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.Equal(t, 0, rs.requests)
}

func TestClient_FetchProduct(t *testing.T) {
	client, _ := setupTestClient(t)

	product, err := client.FetchProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Fjallraven Backpack", product.Title)

	testCases := []struct {
		name    string
		id      int64
		wantErr error
	}{
		{name: "empty body", id: 999, wantErr: ErrNotFound},
		{name: "404", id: 404, wantErr: ErrNotFound},
		{name: "server error", id: 500, wantErr: ErrUnexpectedStatus},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			product, err := client.FetchProduct(context.Background(), tc.id)
			assert.Nil(t, product)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestClient_FetchCategories(t *testing.T) {
	client, _ := setupTestClient(t)

	categories, err := client.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "jewelery", "men's clothing", "women's clothing"}, categories)
}

func TestClient_ContextCancelled(t *testing.T) {
	client, _ := setupTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchProducts(ctx, ListParams{Limit: domain.NoLimit})
	assert.ErrorIs(t, err, context.Canceled)
}
