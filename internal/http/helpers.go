package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fatture/internal/core"
)

// parseViewQuery maps request query parameters onto a ViewQuery. Unknown or
// malformed values fall back to defaults; BuildView clamps numerics.
func parseViewQuery(values url.Values) core.ViewQuery {
	q := core.ViewQuery{
		Status:   strings.TrimSpace(values.Get("status")),
		Search:   strings.TrimSpace(values.Get("search")),
		PageSize: core.DefaultPageSize,
	}
	if q.Status == "" {
		q.Status = core.StatusAll
	}

	switch core.SortKey(values.Get("sort")) {
	case core.SortAmount:
		q.SortKey = core.SortAmount
	case core.SortInvoiceDate:
		q.SortKey = core.SortInvoiceDate
	case core.SortDueDate:
		q.SortKey = core.SortDueDate
	}
	if core.SortDir(values.Get("dir")) == core.SortDesc {
		q.SortDir = core.SortDesc
	} else {
		q.SortDir = core.SortAsc
	}

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			q.Page = p
		}
	}
	if v := strings.TrimSpace(values.Get("pageSize")); v != "" {
		if ps, err := strconv.Atoi(v); err == nil {
			q.PageSize = ps
		}
	}

	return q
}

// canonicalQuery is the cache key for a view: every parameter in a fixed
// order so equivalent requests share an entry.
func canonicalQuery(q core.ViewQuery) string {
	return strings.Join([]string{
		strings.ToLower(q.Status),
		strings.ToLower(q.Search),
		string(q.SortKey),
		string(q.SortDir),
		strconv.Itoa(q.Page),
		strconv.Itoa(q.PageSize),
	}, "|")
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(parsedTime), nil
}

// formatEuros formats cents as a Euro currency string (e.g., "€12,34").
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "," + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func formatUint(n uint64) string {
	return strconv.FormatUint(n, 10)
}
