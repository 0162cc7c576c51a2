package appstore

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is used when a query specifies no page size.
	DefaultLimit = 100
	// MaxLimit is the largest page size the API accepts.
	MaxLimit = 200
	// MinLimit is the smallest page size the API accepts.
	MinLimit = 1
)

// QueryOptions describes the query parameters for a list endpoint.
// The zero value asks for the default page with no filters.
type QueryOptions struct {
	// Limit is the requested page size. Nil means DefaultLimit; values
	// outside [MinLimit, MaxLimit] are clamped rather than rejected so a
	// slightly-wrong request still degrades gracefully.
	Limit *int
	// Include lists relationship names to side-load.
	Include []string
	// Filter maps field names to filter values.
	Filter map[string]string
	// Sort is the sort key, with a leading "-" for descending order.
	Sort string
}

// Limit returns a pointer to n, for use in QueryOptions literals.
func Limit(n int) *int {
	return &n
}

// Params compiles the options into the flat key-value scheme the API
// expects. The compiler is a pure function: equal inputs always produce
// the identical parameter map.
func (o QueryOptions) Params() map[string]string {
	limit := DefaultLimit
	if o.Limit != nil {
		limit = clampLimit(*o.Limit)
	}
	params := map[string]string{
		"limit": strconv.Itoa(limit),
	}

	if len(o.Include) > 0 {
		params["include"] = strings.Join(o.Include, ",")
	}
	for field, value := range o.Filter {
		params[fmt.Sprintf("filter[%s]", field)] = value
	}
	if o.Sort != "" {
		params["sort"] = o.Sort
	}

	return params
}

func clampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
