package core

import (
	"sort"
	"strings"
)

const (
	SortNone        SortKey = ""
	SortAmount      SortKey = "amount"
	SortInvoiceDate SortKey = "invoiceDate"
	SortDueDate     SortKey = "dueDate"

	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"

	// StatusAll disables status filtering.
	StatusAll = "all"

	DefaultPageSize = 10
)

type (
	SortKey string
	SortDir string

	// ViewQuery carries the active filter/search/sort/page parameters.
	// Malformed numeric values are clamped by BuildView, never rejected.
	ViewQuery struct {
		Status   string // StatusAll (or empty) or one of the Status values
		Search   string // case-insensitive substring over customer name or ID
		SortKey  SortKey
		SortDir  SortDir
		Page     int
		PageSize int
	}

	// AnnotatedInvoice is an invoice with its live resolution attached.
	AnnotatedInvoice struct {
		Invoice
		Status Status
		Due    Date
		Aging  string
	}

	// Summary holds aggregate totals over the filtered set.
	Summary struct {
		Outstanding Money // Pending + Overdue
		Overdue     Money
		Paid        Money
		Count       int
	}

	View struct {
		Visible   []AnnotatedInvoice
		Summary   Summary
		PageItems []AnnotatedInvoice
		Page      int
		PageCount int
	}
)

// BuildView derives the visible subset, summary totals and page slice for the
// given query. The pipeline order is fixed: annotate, filter, sort, summarize,
// paginate. Annotation must come first because the status filter operates on
// derived status, not stored state. Summaries are computed over the filtered
// set so they reflect active filters.
//
// An empty filtered set yields PageCount 0 and no page items. The function is
// pure: identical inputs and the same today produce identical output.
func BuildView(invoices []Invoice, q ViewQuery, today Date) View {
	visible := make([]AnnotatedInvoice, 0, len(invoices))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, inv := range invoices {
		res := Resolve(inv, today)
		if !matchStatus(q.Status, res.Status) {
			continue
		}
		if search != "" && !matchSearch(inv, search) {
			continue
		}
		visible = append(visible, AnnotatedInvoice{Invoice: inv, Status: res.Status, Due: res.Due, Aging: res.Aging})
	}

	sortVisible(visible, q.SortKey, q.SortDir)

	var sum Summary
	sum.Count = len(visible)
	for _, ai := range visible {
		switch ai.Status {
		case StatusPaid:
			sum.Paid.Cents += ai.Amount.Cents
		case StatusOverdue:
			sum.Overdue.Cents += ai.Amount.Cents
			sum.Outstanding.Cents += ai.Amount.Cents
		default:
			sum.Outstanding.Cents += ai.Amount.Cents
		}
	}

	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageCount := (len(visible) + pageSize - 1) / pageSize
	page := q.Page
	if page < 1 {
		page = 1
	}
	// Clamp into [1, max(1, pageCount)] so an empty set still reports page 1.
	if maxPage := max(1, pageCount); page > maxPage {
		page = maxPage
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(visible) {
		start = len(visible)
	}
	if end > len(visible) {
		end = len(visible)
	}

	return View{
		Visible:   visible,
		Summary:   sum,
		PageItems: visible[start:end],
		Page:      page,
		PageCount: pageCount,
	}
}

func matchStatus(filter string, st Status) bool {
	if filter == "" || strings.EqualFold(filter, StatusAll) {
		return true
	}
	return strings.EqualFold(filter, string(st))
}

func matchSearch(inv Invoice, lowered string) bool {
	return strings.Contains(strings.ToLower(inv.CustomerName), lowered) ||
		strings.Contains(strings.ToLower(inv.ID), lowered)
}

// sortVisible orders the slice by the requested key. The sort is stable so
// ties preserve prior relative order.
func sortVisible(items []AnnotatedInvoice, key SortKey, dir SortDir) {
	if key == SortNone {
		return
	}
	less := func(a, b AnnotatedInvoice) bool { return false }
	switch key {
	case SortAmount:
		less = func(a, b AnnotatedInvoice) bool { return a.Amount.Cents < b.Amount.Cents }
	case SortInvoiceDate:
		less = func(a, b AnnotatedInvoice) bool { return a.InvoiceDate.Before(b.InvoiceDate.Time) }
	case SortDueDate:
		less = func(a, b AnnotatedInvoice) bool { return a.Due.Before(b.Due.Time) }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if dir == SortDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
