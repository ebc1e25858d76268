package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"storefront-service/internal/cart"
	"storefront-service/internal/domain"
)

// SessionCookie carries the cart session id.
const SessionCookie = "cart_session"

const sessionMaxAge = 30 * 24 * time.Hour

type ctxSessionKey struct{}

// sessionMiddleware makes sure every cart request has a session id, issuing a
// new one in a cookie when the client has none or sends a malformed one.
func sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(SessionCookie); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				sessionID = id.String()
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(sessionMaxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxSessionKey{}).(string)
	return id
}

func (h *HTTPHandler) cartOf(r *http.Request) *cart.Store {
	return h.carts.Get(r.Context(), sessionFrom(r.Context()))
}

// CartResponse is the JSON view of a cart.
type CartResponse struct {
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"` // sum of quantities, for the badge
	Total     string            `json:"total"`
}

func newCartResponse(v cart.View) CartResponse {
	return CartResponse{
		Items:     v.Items,
		ItemCount: v.ItemCount,
		Total:     v.Total.StringFixed(2),
	}
}

// AddCartItemInput defines the expected input for adding a product to the cart.
type AddCartItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, newCartResponse(h.cartOf(r).View()))
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input AddCartItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	product, found := h.catalog.Product(r.Context(), input.ProductID)
	if !found {
		respondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	c := h.cartOf(r)
	c.AddToCart(r.Context(), *product)
	respondWithJSON(w, http.StatusCreated, newCartResponse(c.View()))
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, (*cart.Store).RemoveFromCart)
}

func (h *HTTPHandler) IncreaseCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, (*cart.Store).IncreaseQuantity)
}

func (h *HTTPHandler) DecreaseCartItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, (*cart.Store).DecreaseQuantity)
}

// mutateItem runs an id-based cart operation. Unknown ids are no-ops, not errors.
func (h *HTTPHandler) mutateItem(w http.ResponseWriter, r *http.Request, op func(*cart.Store, context.Context, int64)) {
	productID, ok := parseProductID(w, r)
	if !ok {
		return
	}
	c := h.cartOf(r)
	op(c, r.Context(), productID)
	respondWithJSON(w, http.StatusOK, newCartResponse(c.View()))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c := h.cartOf(r)
	c.ClearCart(r.Context())
	respondWithJSON(w, http.StatusOK, newCartResponse(c.View()))
}

// badgeEvent is the payload of one server-sent cart event.
type badgeEvent struct {
	ItemCount int `json:"item_count"`
}

// StreamCartEvents pushes the badge count as server-sent events: once on connect,
// then after every change to the session's cart, until the client goes away.
// The stream is exempt from the server's write timeout.
func (h *HTTPHandler) StreamCartEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("ERROR: cart event stream: clearing write deadline: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	c := h.cartOf(r)
	// one slot holding the newest count; older unsent counts are replaced
	updates := make(chan int, 1)
	unsubscribe := c.Subscribe(func(items []domain.LineItem) {
		n := 0
		for _, it := range items {
			n += it.Quantity
		}
		select {
		case <-updates:
		default:
		}
		updates <- n
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(count int) bool {
		data, _ := json.Marshal(badgeEvent{ItemCount: count})
		if _, err := fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data); err != nil {
			log.Printf("WARN: cart event stream write failed: %v", err)
			return false
		}
		if err := rc.Flush(); err != nil {
			log.Printf("WARN: cart event stream flush failed: %v", err)
			return false
		}
		return true
	}

	if !send(c.ItemCount()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-updates:
			if !send(n) {
				return
			}
		}
	}
}
