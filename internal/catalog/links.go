package catalog

import (
	"net/url"
	"strconv"

	"storefront-service/internal/domain"
)

// Query parameter names recognized at the presentation boundary.
const (
	ParamSearch   = "search"
	ParamSort     = "sort"
	ParamCategory = "category"
	ParamMinPrice = "minPrice"
	ParamMaxPrice = "maxPrice"
	ParamOffset   = "offset"
	ParamLimit    = "limit"
)

// SetFilter returns a copy of values with one filter parameter changed.
// Any filter change returns to the first page, an empty value removes the key
// and the "all" category is never encoded literally.
func SetFilter(values url.Values, key, value string) url.Values {
	next := cloneValues(values)
	if value == "" || (key == ParamCategory && value == domain.CategoryAll) {
		next.Del(key)
	} else {
		next.Set(key, value)
	}
	next.Del(ParamOffset)
	return next
}

// SetOffset returns a copy of values pointing at the page that starts at offset.
// Offset 0 is the first page and is left implicit.
func SetOffset(values url.Values, offset int) url.Values {
	next := cloneValues(values)
	if offset <= 0 {
		next.Del(ParamOffset)
	} else {
		next.Set(ParamOffset, strconv.Itoa(offset))
	}
	return next
}

// PageLinks computes the encoded query strings of the neighbouring pages.
// An empty string means there is no such page.
func PageLinks(values url.Values, offset, limit, total int) (next, prev string) {
	if limit <= 0 {
		return "", ""
	}
	if offset+limit < total {
		next = SetOffset(values, offset+limit).Encode()
	}
	if offset > 0 {
		p := offset - limit
		if p < 0 {
			p = 0
		}
		prev = SetOffset(values, p).Encode()
	}
	return next, prev
}

func cloneValues(values url.Values) url.Values {
	next := make(url.Values, len(values))
	for k, v := range values {
		next[k] = append([]string(nil), v...)
	}
	return next
}
