package store

import (
	"regexp"
	"sort"

	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
)

// Paginate applies pattern filtering, sorting, and 1-based pagination to
// a full candidate set of items, the shared logic every backend's List
// implementation needs (spec.md §4.4 tie-breaks).
func Paginate(items []ListItem, opts ListOptions) (ListResult, error) {
	opts = opts.ApplyDefaults()

	filtered := items
	if opts.Pattern != "" {
		re, err := regexp.Compile(opts.Pattern)
		if err != nil {
			return ListResult{}, fabricerr.Wrap(fabricerr.InputError, "invalid list pattern", err)
		}
		filtered = make([]ListItem, 0, len(items))
		for _, it := range items {
			if re.MatchString(it.URI) {
				filtered = append(filtered, it)
			}
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		var cmp bool
		switch opts.SortBy {
		case SortByTimestamp:
			cmp = a.Record.TS < b.Record.TS
		default:
			cmp = a.URI < b.URI
		}
		if opts.SortOrder == SortDesc {
			switch opts.SortBy {
			case SortByTimestamp:
				return a.Record.TS > b.Record.TS
			default:
				return a.URI > b.URI
			}
		}
		return cmp
	})

	total := len(filtered)
	limit := opts.Limit
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return ListResult{
		Data: filtered[start:end],
		Pagination: Pagination{
			Page:       opts.Page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
