package domain

// LineItem is a product in the cart together with its quantity.
// Product is embedded so the JSON encoding is flat: all product fields plus "quantity".
type LineItem struct {
	Product
	Quantity int `json:"quantity"` // always >= 1 while the item is in a cart
}
