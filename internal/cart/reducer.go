// Package cart keeps the shopping cart: a pure reducer over cart actions and a
// Store that applies it, persists a snapshot after every transition and notifies
// subscribers.
package cart

import "storefront-service/internal/domain"

// ActionKind identifies a cart operation.
type ActionKind int

const (
	ActionAdd ActionKind = iota + 1
	ActionRemove
	ActionIncrease
	ActionDecrease
	ActionClear
)

func (k ActionKind) String() string {
	switch k {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionIncrease:
		return "increase"
	case ActionDecrease:
		return "decrease"
	case ActionClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Action is one cart operation. Product is only read by ActionAdd.
type Action struct {
	Kind      ActionKind
	Product   domain.Product
	ProductID int64
}

func Add(p domain.Product) Action { return Action{Kind: ActionAdd, Product: p, ProductID: p.ID} }
func Remove(id int64) Action { return Action{Kind: ActionRemove, ProductID: id} }
func Increase(id int64) Action { return Action{Kind: ActionIncrease, ProductID: id} }
func Decrease(id int64) Action { return Action{Kind: ActionDecrease, ProductID: id} }
func Clear() Action { return Action{Kind: ActionClear} }

// Reduce returns the line items after applying a. The input is never modified.
//
// Add increments an existing line or appends a new one with quantity 1.
// Decrease stops at 1; Remove is the only way a line leaves the cart.
// Operations on ids that are not in the cart are no-ops.
func Reduce(items []domain.LineItem, a Action) []domain.LineItem {
	switch a.Kind {
	case ActionClear:
		return []domain.LineItem{}
	case ActionAdd:
		if indexOf(items, a.Product.ID) < 0 {
			next := make([]domain.LineItem, len(items), len(items)+1)
			copy(next, items)
			return append(next, domain.LineItem{Product: a.Product, Quantity: 1})
		}
		return adjust(items, a.Product.ID, 1)
	case ActionIncrease:
		return adjust(items, a.ProductID, 1)
	case ActionDecrease:
		return adjust(items, a.ProductID, -1)
	case ActionRemove:
		next := make([]domain.LineItem, 0, len(items))
		for _, it := range items {
			if it.ID != a.ProductID {
				next = append(next, it)
			}
		}
		return next
	default:
		return clone(items)
	}
}

// adjust changes the quantity of one line by delta, never going below 1.
func adjust(items []domain.LineItem, id int64, delta int) []domain.LineItem {
	next := clone(items)
	if i := indexOf(next, id); i >= 0 {
		q := next[i].Quantity + delta
		if q < 1 {
			q = 1
		}
		next[i].Quantity = q
	}
	return next
}

func indexOf(items []domain.LineItem, id int64) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func clone(items []domain.LineItem) []domain.LineItem {
	next := make([]domain.LineItem, len(items))
	copy(next, items)
	return next
}
