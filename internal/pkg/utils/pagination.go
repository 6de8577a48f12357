package utils

import "strconv"

// Snapshot listings are metadata-only, so page sizes stay small.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams holds the parsed page window for a list request.
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// ParsePaginationParams parses page/page_size query values, clamping to the
// allowed window. Unparseable or missing values fall back to the defaults.
func ParsePaginationParams(page, pageSize string) PaginationParams {
	p := parseIntQuery(page, 1)
	if p < 1 {
		p = 1
	}

	size := parseIntQuery(pageSize, DefaultPageSize)
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return PaginationParams{
		Page:     p,
		PageSize: size,
		Offset:   (p - 1) * size,
	}
}

func parseIntQuery(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
