package core

import (
	"reflect"
	"testing"
)

var viewToday = NewDate(2024, 6, 15)

// fixture returns a small mixed collection: relative to viewToday the first
// invoice is Pending, the second Overdue, the third Paid.
func fixture() []Invoice {
	return []Invoice{
		{ID: "FT-1", CustomerName: "Jensen Huang", Amount: Money{Cents: 10000}, InvoiceDate: NewDate(2024, 6, 1), PaymentTerms: 30},
		{ID: "FT-2", CustomerName: "Alex Grim", Amount: Money{Cents: 20000}, InvoiceDate: NewDate(2024, 5, 1), PaymentTerms: 14},
		{ID: "FT-3", CustomerName: "Mellisa Clarke", Amount: Money{Cents: 5000}, InvoiceDate: NewDate(2024, 5, 1), PaymentTerms: 14, PaymentDate: NewDate(2024, 5, 10)},
	}
}

func TestBuildViewSummary(t *testing.T) {
	v := BuildView(fixture(), ViewQuery{}, viewToday)
	if v.Summary.Outstanding.Cents != 30000 {
		t.Fatalf("outstanding = %d, want 30000", v.Summary.Outstanding.Cents)
	}
	if v.Summary.Overdue.Cents != 20000 {
		t.Fatalf("overdue = %d, want 20000", v.Summary.Overdue.Cents)
	}
	if v.Summary.Paid.Cents != 5000 {
		t.Fatalf("paid = %d, want 5000", v.Summary.Paid.Cents)
	}
	if v.Summary.Count != 3 {
		t.Fatalf("count = %d, want 3", v.Summary.Count)
	}
}

func TestBuildViewSummaryPartition(t *testing.T) {
	// outstanding + paid must equal the total over the filtered set: every
	// invoice lands in exactly one of Pending/Overdue/Paid.
	v := BuildView(fixture(), ViewQuery{}, viewToday)
	var total int64
	for _, ai := range v.Visible {
		total += ai.Amount.Cents
	}
	if v.Summary.Outstanding.Cents+v.Summary.Paid.Cents != total {
		t.Fatalf("outstanding(%d) + paid(%d) != total(%d)",
			v.Summary.Outstanding.Cents, v.Summary.Paid.Cents, total)
	}
}

func TestBuildViewStatusFilter(t *testing.T) {
	invs := fixture()
	for _, st := range []Status{StatusPending, StatusOverdue, StatusPaid} {
		v := BuildView(invs, ViewQuery{Status: string(st)}, viewToday)
		for _, ai := range v.Visible {
			if ai.Status != st {
				t.Fatalf("filter %s leaked %s invoice %s", st, ai.Status, ai.ID)
			}
		}
		// Filtering by one status then summing must match that status's
		// summary field on the unfiltered view.
		full := BuildView(invs, ViewQuery{}, viewToday)
		var want int64
		switch st {
		case StatusOverdue:
			want = full.Summary.Overdue.Cents
		case StatusPaid:
			want = full.Summary.Paid.Cents
		case StatusPending:
			want = full.Summary.Outstanding.Cents - full.Summary.Overdue.Cents
		}
		var got int64
		for _, ai := range v.Visible {
			got += ai.Amount.Cents
		}
		if got != want {
			t.Fatalf("status %s: filtered sum %d != summary %d", st, got, want)
		}
	}
}

func TestBuildViewSearch(t *testing.T) {
	cases := []struct {
		search string
		ids    []string
	}{
		{"grim", []string{"FT-2"}},
		{"ALEX", []string{"FT-2"}},
		{"ft-3", []string{"FT-3"}},
		{"l", []string{"FT-2", "FT-3"}}, // aLex, meLLisa cLarke
		{"nobody", nil},
		{"  ", []string{"FT-1", "FT-2", "FT-3"}}, // blank search matches all
	}
	for _, tc := range cases {
		v := BuildView(fixture(), ViewQuery{Search: tc.search}, viewToday)
		var ids []string
		for _, ai := range v.Visible {
			ids = append(ids, ai.ID)
		}
		if !reflect.DeepEqual(ids, tc.ids) {
			t.Fatalf("search %q: got %v, want %v", tc.search, ids, tc.ids)
		}
	}
}

func TestBuildViewSort(t *testing.T) {
	asc := BuildView(fixture(), ViewQuery{SortKey: SortAmount, SortDir: SortAsc}, viewToday)
	if got := []string{asc.Visible[0].ID, asc.Visible[1].ID, asc.Visible[2].ID}; !reflect.DeepEqual(got, []string{"FT-3", "FT-1", "FT-2"}) {
		t.Fatalf("amount asc order = %v", got)
	}
	desc := BuildView(fixture(), ViewQuery{SortKey: SortAmount, SortDir: SortDesc}, viewToday)
	if got := []string{desc.Visible[0].ID, desc.Visible[1].ID, desc.Visible[2].ID}; !reflect.DeepEqual(got, []string{"FT-2", "FT-1", "FT-3"}) {
		t.Fatalf("amount desc order = %v", got)
	}
	byDue := BuildView(fixture(), ViewQuery{SortKey: SortDueDate, SortDir: SortAsc}, viewToday)
	if byDue.Visible[0].ID != "FT-2" && byDue.Visible[0].ID != "FT-3" {
		t.Fatalf("dueDate asc should start with a May invoice, got %s", byDue.Visible[0].ID)
	}
}

func TestBuildViewSortStableOnTies(t *testing.T) {
	invs := []Invoice{
		{ID: "FT-1", CustomerName: "a", Amount: Money{Cents: 100}, InvoiceDate: NewDate(2024, 6, 1), PaymentTerms: 30},
		{ID: "FT-2", CustomerName: "b", Amount: Money{Cents: 100}, InvoiceDate: NewDate(2024, 6, 2), PaymentTerms: 30},
		{ID: "FT-3", CustomerName: "c", Amount: Money{Cents: 100}, InvoiceDate: NewDate(2024, 6, 3), PaymentTerms: 30},
	}
	for _, dir := range []SortDir{SortAsc, SortDesc} {
		v := BuildView(invs, ViewQuery{SortKey: SortAmount, SortDir: dir}, viewToday)
		got := []string{v.Visible[0].ID, v.Visible[1].ID, v.Visible[2].ID}
		if !reflect.DeepEqual(got, []string{"FT-1", "FT-2", "FT-3"}) {
			t.Fatalf("dir %s: equal amounts must preserve input order, got %v", dir, got)
		}
	}
}

func TestBuildViewPagination(t *testing.T) {
	var invs []Invoice
	for i := 0; i < 7; i++ {
		invs = append(invs, Invoice{
			ID:           string(rune('A' + i)),
			CustomerName: "c",
			Amount:       Money{Cents: int64(100 * (i + 1))},
			InvoiceDate:  NewDate(2024, 6, 1),
			PaymentTerms: 30,
		})
	}

	first := BuildView(invs, ViewQuery{Page: 1, PageSize: 3}, viewToday)
	if first.PageCount != 3 {
		t.Fatalf("pageCount = %d, want 3", first.PageCount)
	}

	// Concatenating all pages must reproduce the visible set exactly.
	var all []string
	for p := 1; p <= first.PageCount; p++ {
		v := BuildView(invs, ViewQuery{Page: p, PageSize: 3}, viewToday)
		for _, ai := range v.PageItems {
			all = append(all, ai.ID)
		}
	}
	var want []string
	for _, ai := range first.Visible {
		want = append(want, ai.ID)
	}
	if !reflect.DeepEqual(all, want) {
		t.Fatalf("page concatenation %v != visible %v", all, want)
	}
}

func TestBuildViewPageClamping(t *testing.T) {
	invs := fixture()

	// Out-of-range and negative pages clamp instead of erroring.
	over := BuildView(invs, ViewQuery{Page: 99, PageSize: 2}, viewToday)
	if over.Page != over.PageCount {
		t.Fatalf("page = %d, want clamped to %d", over.Page, over.PageCount)
	}
	if len(over.PageItems) == 0 {
		t.Fatalf("clamped page should not be empty")
	}
	neg := BuildView(invs, ViewQuery{Page: -4, PageSize: 2}, viewToday)
	if neg.Page != 1 {
		t.Fatalf("negative page clamped to %d, want 1", neg.Page)
	}

	// Zero page size falls back to the default instead of dividing by zero.
	def := BuildView(invs, ViewQuery{}, viewToday)
	if def.PageCount != 1 || len(def.PageItems) != 3 {
		t.Fatalf("default page size: pageCount=%d items=%d", def.PageCount, len(def.PageItems))
	}
}

func TestBuildViewEmptySet(t *testing.T) {
	v := BuildView(nil, ViewQuery{Page: 3, PageSize: 5}, viewToday)
	if v.PageCount != 0 {
		t.Fatalf("empty set pageCount = %d, want 0", v.PageCount)
	}
	if v.Page != 1 {
		t.Fatalf("empty set page = %d, want clamped to 1", v.Page)
	}
	if len(v.PageItems) != 0 {
		t.Fatalf("empty set should have no page items")
	}
	if v.Summary.Count != 0 || v.Summary.Outstanding.Cents != 0 {
		t.Fatalf("empty set summary not zero: %+v", v.Summary)
	}

	// Filtering a non-empty collection down to nothing clamps the same way.
	filtered := BuildView(fixture(), ViewQuery{Search: "no such customer", Page: 7, PageSize: 5}, viewToday)
	if filtered.PageCount != 0 || filtered.Page != 1 {
		t.Fatalf("filtered-to-empty: page=%d pageCount=%d, want 1 and 0", filtered.Page, filtered.PageCount)
	}
}

func TestBuildViewIdempotent(t *testing.T) {
	q := ViewQuery{Status: StatusAll, Search: "a", SortKey: SortDueDate, SortDir: SortDesc, Page: 1, PageSize: 2}
	a := BuildView(fixture(), q, viewToday)
	b := BuildView(fixture(), q, viewToday)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("BuildView is not deterministic")
	}
}
