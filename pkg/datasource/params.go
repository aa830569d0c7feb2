package datasource

import (
	"net/url"
	"strings"
)

// Filters extracts equality filters from query parameters. Keys of the
// form "filters[column]" with a non-empty value are returned keyed by
// column; everything else is ignored.
func Filters(params url.Values) map[string]string {
	out := make(map[string]string)
	for key, values := range params {
		col, ok := filterColumn(key)
		if !ok || len(values) == 0 || values[0] == "" {
			continue
		}
		out[col] = values[0]
	}
	return out
}

func filterColumn(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "filters[")
	if !ok {
		return "", false
	}
	col, ok := strings.CutSuffix(rest, "]")
	if !ok || col == "" {
		return "", false
	}
	return col, true
}

// Sort extracts the sort column and direction ("asc" or "desc") from
// query parameters.
func Sort(params url.Values) (column, order string) {
	column = params.Get("sort")
	order = strings.ToLower(params.Get("order"))
	if order != "asc" && order != "desc" {
		order = "asc"
	}
	return column, order
}
