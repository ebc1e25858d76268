package cart

import (
	"encoding/json"
	"fmt"

	"storefront-service/internal/domain"
)

// KeyPrefix is the fixed snapshot key. Each session's cart lives under KeyPrefix:<session>.
const KeyPrefix = "fakestore_cart"

// Key returns the snapshot key for a session.
func Key(sessionID string) string {
	if sessionID == "" {
		return KeyPrefix
	}
	return KeyPrefix + ":" + sessionID
}

// Encode serializes line items as a JSON array of flat product+quantity objects.
func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("cart: encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot produced by Encode. Lines with a quantity below 1, without
// a product id, or repeating an earlier id are dropped so the cart invariants hold
// whatever was stored.
func Decode(data []byte) ([]domain.LineItem, error) {
	var raw []domain.LineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cart: decode snapshot: %w", err)
	}

	items := make([]domain.LineItem, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))
	for _, it := range raw {
		if it.ID <= 0 || it.Quantity < 1 {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		items = append(items, it)
	}
	return items, nil
}
