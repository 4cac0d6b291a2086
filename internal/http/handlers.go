package http

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"fatture/internal/core"
	"fatture/internal/export"
	"fatture/internal/ledger"
	applog "fatture/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Today string
	}{
		Today: s.today().Format("2006-01-02"),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type invoiceRow struct {
	ID       string
	Customer string
	Date     string
	Due      string
	Amount   string
	Status   string
	Aging    string
	Paid     bool
}

type invoicesPartialData struct {
	Rows        []invoiceRow
	Outstanding string
	Overdue     string
	PaidTotal   string
	Count       int
	Page        int
	PageCount   int
	PrevPage    int
	NextPage    int
	Status      string
	Search      string
	Sort        string
	Dir         string
	Empty       bool
}

// handleInvoicesPartial renders the table and summary partial for the
// current query. Rendered HTML is cached per canonical query string until
// the next mutation.
func (s *Server) handleInvoicesPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	q := parseViewQuery(r.URL.Query())
	key := canonicalQuery(q)
	if html, found := s.cachedPartial(key); found {
		slog.DebugContext(r.Context(), "View cache hit", "key", key)
		_, _ = w.Write([]byte(html))
		return
	}

	invoices, err := s.ports.Lister.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Invoice list error", "error", err)
		_, _ = w.Write([]byte(`<section id="invoices" class="invoices"><div class="placeholder">Errore caricando le fatture</div></section>`))
		return
	}

	view := core.BuildView(invoices, q, s.today())

	data := invoicesPartialData{
		Outstanding: formatEuros(view.Summary.Outstanding.Cents),
		Overdue:     formatEuros(view.Summary.Overdue.Cents),
		PaidTotal:   formatEuros(view.Summary.Paid.Cents),
		Count:       view.Summary.Count,
		Page:        view.Page,
		PageCount:   view.PageCount,
		PrevPage:    view.Page - 1,
		NextPage:    view.Page + 1,
		Status:      q.Status,
		Search:      q.Search,
		Sort:        string(q.SortKey),
		Dir:         string(q.SortDir),
		Empty:       view.Summary.Count == 0,
	}
	if data.PrevPage < 1 {
		data.PrevPage = 1
	}
	if data.NextPage > view.PageCount {
		data.NextPage = view.PageCount
	}
	for _, ai := range view.PageItems {
		data.Rows = append(data.Rows, invoiceRow{
			ID:       ai.ID,
			Customer: ai.CustomerName,
			Date:     ai.InvoiceDate.Format("2006-01-02"),
			Due:      ai.Due.Format("2006-01-02"),
			Amount:   formatEuros(ai.Amount.Cents),
			Status:   string(ai.Status),
			Aging:    ai.Aging,
			Paid:     ai.Status == core.StatusPaid,
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="invoices" class="invoices"><div class="placeholder">Da incassare: ` + data.Outstanding + `</div></section>`))
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "invoices.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "invoices.html")
		_, _ = w.Write([]byte(`<section id="invoices" class="invoices"><div class="placeholder">Errore rendering fatture</div></section>`))
		return
	}

	s.storePartial(key, buf.String())
	_, _ = w.Write(buf.Bytes())
}

// parseDraft reads the invoice draft fields shared by create and update.
func parseDraft(r *http.Request) (ledger.InvoiceDraft, string) {
	customer := sanitizeInput(r.Form.Get("customer"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	dateStr := strings.TrimSpace(r.Form.Get("invoice_date"))
	termsStr := strings.TrimSpace(r.Form.Get("terms"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		return ledger.InvoiceDraft{}, "Importo non valido"
	}
	invoiceDate, err := parseDate(dateStr)
	if err != nil {
		return ledger.InvoiceDraft{}, "Data fattura non valida"
	}
	terms := 0
	if termsStr != "" {
		terms, err = strconv.Atoi(termsStr)
		if err != nil || terms < 0 {
			return ledger.InvoiceDraft{}, "Termini di pagamento non validi"
		}
	}

	draft := ledger.InvoiceDraft{
		CustomerName: customer,
		Amount:       core.Money{Cents: cents},
		InvoiceDate:  invoiceDate,
		PaymentTerms: terms,
	}
	if err := draft.Invoice().Validate(); err != nil {
		return ledger.InvoiceDraft{}, "Dati non validi: " + err.Error()
	}
	return draft, ""
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	draft, msg := parseDraft(r)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	inv, err := s.ports.Writer.Add(r.Context(), draft)
	if err != nil {
		slog.ErrorContext(r.Context(), "Invoice add error", "error", err,
			applog.FieldCustomer, draft.CustomerName,
			applog.FieldAmountCents, draft.Amount.Cents)
		writeError(w, http.StatusInternalServerError, "Errore nel salvataggio")
		return
	}
	s.slogger.LogInvoiceCreated(r.Context(), inv.ID, inv.CustomerName, inv.Amount.Cents)

	s.invalidateViews()
	w.Header().Set("HX-Trigger", `{"invoice:created": {"id": "`+inv.ID+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Fattura registrata (` + template.HTMLEscapeString(inv.ID) + `): ` +
		template.HTMLEscapeString(inv.CustomerName) +
		`, ` + formatEuros(inv.Amount.Cents) + `</div>`))
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		writeError(w, http.StatusUnprocessableEntity, "ID fattura mancante")
		return
	}
	draft, msg := parseDraft(r)
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	inv, err := s.ports.Editor.Update(r.Context(), id, draft)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Fattura non trovata")
			return
		}
		slog.ErrorContext(r.Context(), "Invoice update error", "error", err, applog.FieldInvoiceID, id)
		writeError(w, http.StatusInternalServerError, "Errore nel salvataggio")
		return
	}

	s.invalidateViews()
	w.Header().Set("HX-Trigger", `{"invoice:updated": {"id": "`+inv.ID+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Fattura aggiornata (` + template.HTMLEscapeString(inv.ID) + `)</div>`))
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		writeError(w, http.StatusUnprocessableEntity, "ID fattura mancante")
		return
	}

	// Payment date defaults to today when the form omits it
	paymentDate := s.today()
	if v := strings.TrimSpace(r.Form.Get("payment_date")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "Data pagamento non valida")
			return
		}
		paymentDate = d
	}

	inv, err := s.ports.Editor.MarkPaid(r.Context(), id, paymentDate)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Fattura non trovata")
			return
		}
		slog.ErrorContext(r.Context(), "Mark paid error", "error", err, applog.FieldInvoiceID, id)
		writeError(w, http.StatusInternalServerError, "Errore nel salvataggio")
		return
	}

	s.invalidateViews()
	w.Header().Set("HX-Trigger", `{"invoice:paid": {"id": "`+inv.ID+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Fattura incassata (` + template.HTMLEscapeString(inv.ID) + `)</div>`))
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		writeError(w, http.StatusUnprocessableEntity, "ID fattura mancante")
		return
	}

	// Unknown IDs are a no-op, so repeated deletes succeed
	if err := s.ports.Deleter.Delete(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Invoice delete error", "error", err, applog.FieldInvoiceID, id)
		writeError(w, http.StatusInternalServerError, "Errore nella cancellazione")
		return
	}

	s.invalidateViews()
	w.Header().Set("HX-Trigger", `{"invoice:deleted": {"id": "`+id+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Fattura eliminata (` + template.HTMLEscapeString(id) + `)</div>`))
}

// handleExportCSV streams the visible set (filter and search applied,
// pagination ignored) as a CSV download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	invoices, err := s.ports.Lister.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Invoice list error", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	view := core.BuildView(invoices, parseViewQuery(r.URL.Query()), s.today())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.csv"`)
	if err := export.WriteCSV(w, view.Visible); err != nil {
		s.slogger.LogError(r.Context(), "CSV export error", err,
			applog.ComponentHTTP, applog.OpExport, applog.NewFields())
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		writeError(w, http.StatusBadRequest, "Formato richiesta non valido")
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(msg) + `</div>`))
}
