// Package catalog filters, sorts and paginates a product collection held in memory,
// and provides the fetch-all pipeline that feeds it from the upstream API.
package catalog

import (
	"sort"
	"strings"

	"storefront-service/internal/domain"
)

// Result is one page of a filtered catalog.
type Result struct {
	Page  []domain.Product
	Total int // matches before pagination
}

// Query applies params to the full catalog. Filtering runs price range, title search and
// category in that order, then a stable price sort, then the [offset, offset+limit) slice.
// The input slice is never modified.
func Query(products []domain.Product, params domain.FilterParams) Result {
	filtered := make([]domain.Product, 0, len(products))
	search := strings.ToLower(params.Search)
	for _, p := range products {
		if params.MinPrice != nil && p.Price < *params.MinPrice {
			continue
		}
		if params.MaxPrice != nil && p.Price > *params.MaxPrice {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		if params.Category != "" && params.Category != domain.CategoryAll && p.Category != params.Category {
			continue
		}
		filtered = append(filtered, p)
	}

	switch params.Sort {
	case domain.SortAsc:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price < filtered[j].Price })
	case domain.SortDesc:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price > filtered[j].Price })
	}

	return Result{
		Page:  paginate(filtered, params.Offset, params.Limit),
		Total: len(filtered),
	}
}

func paginate(products []domain.Product, offset, limit int) []domain.Product {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(products) || limit == 0 {
		return []domain.Product{}
	}
	end := len(products)
	if limit > 0 && limit < end-offset {
		end = offset + limit
	}
	return products[offset:end]
}
