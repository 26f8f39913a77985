package shared

import (
	"net/http"
	"strconv"

	"hrleave/internal/domain/errs"
)

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Pagination
}

// ParsePagination reads limit and offset, clamping limit to maxLimit.
// Non-numeric or negative values are validation errors.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) (Pagination, error) {
	page := Pagination{Limit: defaultLimit}
	fields := &errs.Fields{}
	query := r.URL.Query()
	if raw := query.Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err != nil || v <= 0 {
			fields.Add("limit", "must be a positive integer")
		} else {
			page.Limit = v
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err != nil || v < 0 {
			fields.Add("offset", "must be a non-negative integer")
		} else {
			page.Offset = v
		}
	}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page, fields.Err()
}
