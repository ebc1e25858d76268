package domain

// CategoryAll is the synthetic category meaning "apply no category filter".
// It is never a real upstream category name.
const CategoryAll = "all"

// NoLimit disables pagination in FilterParams.Limit.
// A literal 0 is a page size of zero and yields an empty page.
const NoLimit = -1

// DefaultPageSize is the page size used when the caller does not supply one.
const DefaultPageSize = 10

// Rating is the aggregate customer rating attached to a product.
type Rating struct {
	Rate  float64 `json:"rate"`  // 0-5
	Count int     `json:"count"` // number of ratings
}

// Product represents a product as received from the upstream catalog API.
// The json tags match the upstream payload so the record can be passed through unchanged.
type Product struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// SortOrder orders products by price.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterParams holds the filter, sort and pagination options applied to a catalog.
// Nil pointers and empty strings mean "not set".
type FilterParams struct {
	Search   string
	Category string // "" or CategoryAll disables the category filter
	MinPrice *float64
	MaxPrice *float64
	Sort     SortOrder
	Offset   int
	Limit    int // NoLimit for everything from Offset
}

// DefaultFilterParams returns params with no filters set and the default page size.
func DefaultFilterParams() FilterParams {
	return FilterParams{Limit: DefaultPageSize}
}
