package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"fatture/internal/core"
	"fatture/internal/ledger"
)

// Store is the default in-memory backend. When a file path is configured the
// full collection is serialized back to it on every mutation and rehydrated
// at startup, so a single-user session survives restarts.
type Store struct {
	mu     sync.Mutex
	items  []core.Invoice
	nextID int64
	path   string // empty disables persistence
}

// Interface conformance
var (
	_ ledger.InvoiceWriter  = (*Store)(nil)
	_ ledger.InvoiceEditor  = (*Store)(nil)
	_ ledger.InvoiceDeleter = (*Store)(nil)
	_ ledger.InvoiceLister  = (*Store)(nil)
)

func New() *Store {
	return &Store{nextID: 1}
}

// NewFromFile loads invoices from the JSON file under dir (created lazily on
// first write). A missing or unreadable file yields an empty store.
func NewFromFile(dir string) *Store {
	path := filepath.Join(dir, "invoices.json")
	s := &Store{nextID: 1, path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var recs []invoiceRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		slog.Warn("Ignoring malformed invoice data file", "path", path, "error", err)
		return s
	}
	for _, r := range recs {
		inv, err := r.invoice()
		if err != nil {
			slog.Warn("Skipping malformed invoice record", "id", r.ID, "error", err)
			continue
		}
		s.items = append(s.items, inv)
		// Keep the counter ahead of every loaded ID so IDs are never reused.
		if n, ok := idNumber(inv.ID); ok && n >= s.nextID {
			s.nextID = n + 1
		}
	}
	return s
}

func (s *Store) Add(_ context.Context, d ledger.InvoiceDraft) (core.Invoice, error) {
	inv := d.Invoice()
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = fmt.Sprintf("FT-%d", s.nextID)
	s.nextID++
	s.items = append(s.items, inv)
	if err := s.persistLocked(); err != nil {
		// Roll back the insert; the counter stays advanced so the failed
		// ID is never handed out again.
		s.items = s.items[:len(s.items)-1]
		return core.Invoice{}, err
	}
	return inv, nil
}

func (s *Store) Update(_ context.Context, id string, d ledger.InvoiceDraft) (core.Invoice, error) {
	inv := d.Invoice()
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return core.Invoice{}, ledger.ErrNotFound
	}
	inv.ID = id
	inv.PaymentDate = s.items[i].PaymentDate
	prev := s.items[i]
	s.items[i] = inv
	if err := s.persistLocked(); err != nil {
		s.items[i] = prev
		return core.Invoice{}, err
	}
	return inv, nil
}

func (s *Store) MarkPaid(_ context.Context, id string, paymentDate core.Date) (core.Invoice, error) {
	if err := paymentDate.Validate(); err != nil {
		return core.Invoice{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return core.Invoice{}, ledger.ErrNotFound
	}
	if !s.items[i].IsPaid() {
		s.items[i].PaymentDate = paymentDate
		if err := s.persistLocked(); err != nil {
			s.items[i].PaymentDate = core.Date{}
			return core.Invoice{}, err
		}
	}
	return s.items[i], nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil
	}
	// Remove into a fresh slice so a persist failure can restore the old one
	old := s.items
	next := make([]core.Invoice, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	s.items = next
	if err := s.persistLocked(); err != nil {
		s.items = old
		return err
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Invoice, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) indexLocked(id string) int {
	for i, inv := range s.items {
		if inv.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked serializes the whole collection. Write-to-temp plus rename so
// a crash mid-write never truncates the data file.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	recs := make([]invoiceRecord, len(s.items))
	for i, inv := range s.items {
		recs[i] = recordOf(inv)
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal invoices: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write invoices: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace invoices file: %w", err)
	}
	return nil
}

const dateLayout = "2006-01-02"

type invoiceRecord struct {
	ID           string `json:"id"`
	CustomerName string `json:"customerName"`
	AmountCents  int64  `json:"amountCents"`
	InvoiceDate  string `json:"invoiceDate"`
	PaymentTerms int    `json:"paymentTerms"`
	PaymentDate  string `json:"paymentDate,omitempty"`
}

func recordOf(inv core.Invoice) invoiceRecord {
	r := invoiceRecord{
		ID:           inv.ID,
		CustomerName: inv.CustomerName,
		AmountCents:  inv.Amount.Cents,
		InvoiceDate:  inv.InvoiceDate.Format(dateLayout),
		PaymentTerms: inv.PaymentTerms,
	}
	if inv.IsPaid() {
		r.PaymentDate = inv.PaymentDate.Format(dateLayout)
	}
	return r
}

func (r invoiceRecord) invoice() (core.Invoice, error) {
	issued, err := parseDate(r.InvoiceDate)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice date: %w", err)
	}
	inv := core.Invoice{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Amount:       core.Money{Cents: r.AmountCents},
		InvoiceDate:  issued,
		PaymentTerms: r.PaymentTerms,
	}
	if r.PaymentDate != "" {
		paid, err := parseDate(r.PaymentDate)
		if err != nil {
			return core.Invoice{}, fmt.Errorf("payment date: %w", err)
		}
		inv.PaymentDate = paid
	}
	return inv, inv.Validate()
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(t), nil
}

func idNumber(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, "FT-")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
