/*
handlers.go - HTTP API handlers for the chit fund book

PURPOSE:
  Exposes the chit-cycle engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine through the book.

ENDPOINTS:
  Funds:
    GET    /api/funds                     List funds with active flag
    POST   /api/funds                     Create fund from FundJSON
    GET    /api/funds/{id}                Fund detail and summary
    DELETE /api/funds/{id}                Delete (X-Admin-Password)

  Cycles:
    GET    /api/funds/{id}/cycles                 Every cycle with payout amount
    GET    /api/funds/{id}/cycles/available       Cycles without a payout
    GET    /api/funds/{id}/cycles/{cycle}         Monthly ledger
    PATCH  /api/funds/{id}/cycles/{cycle}/payments/{member}
    POST   /api/funds/{id}/payouts                Record "chit taken"

  Reports:
    GET    /api/funds/{id}/members/{member}/statement
    GET    /api/funds/{id}/export?format=xlsx|csv
    POST   /api/funds/{id}/export/sheets

  Backup:
    GET    /api/backup                    Whole collection as JSON
    POST   /api/restore                   Replace collection (X-Admin-Password)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input shape
  3. Run the engine operation inside Book.Update (persisted on success)
  4. Serialize response

ERROR HANDLING:
  Engine errors map to HTTP status in writeDomainError:
  - 400: Validation errors, invalid input
  - 403: Wrong admin password
  - 404: Fund, member, or payment line not found
  - 409: Duplicate recipient, cycle already paid out, fund exists
  - 422: Disbursal schedule cannot answer for a cycle
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/chitfund/book"
	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/export"
	"github.com/warp/chitfund/factory"
	"github.com/warp/chitfund/logging"
	"github.com/warp/chitfund/store/jsonfile"
)

// AdminPasswordHeader carries the credential for destructive operations.
const AdminPasswordHeader = "X-Admin-Password"

const maxBodyBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// FundExporter pushes a fund's export table somewhere remote.
type FundExporter interface {
	Export(ctx context.Context, f chit.Fund) (string, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Book    *book.Book
	Factory *factory.FundFactory
	Sheets  FundExporter // nil when not configured
	Now     func() time.Time

	mu              sync.Mutex
	currentScenario string
}

func NewHandler(b *book.Book, sheets FundExporter) *Handler {
	return &Handler{
		Book:    b,
		Factory: factory.NewFundFactory(),
		Sheets:  sheets,
		Now:     time.Now,
	}
}

// =============================================================================
// FUND HANDLERS
// =============================================================================

func (h *Handler) ListFunds(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	funds := h.Book.List()
	dtos := make([]FundListItemDTO, len(funds))
	for i, f := range funds {
		dtos[i] = toListItemDTO(f, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateFund(w http.ResponseWriter, r *http.Request) {
	var req factory.FundJSON
	if !decodeBody(w, r, &req) {
		return
	}
	req.ID = "" // always server-assigned

	fund, err := h.Factory.Build(req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	created, err := h.Book.Create(r.Context(), fund)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toDetailDTO(created))
}

func (h *Handler) GetFund(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadFund(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toDetailDTO(f))
}

func (h *Handler) DeleteFund(w http.ResponseWriter, r *http.Request) {
	id := chit.FundID(chi.URLParam(r, "id"))
	if err := h.Book.Delete(r.Context(), id, r.Header.Get(AdminPasswordHeader)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CYCLE HANDLERS
// =============================================================================

// ListCycles returns every cycle with its label, availability and payout.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadFund(w, r)
	if !ok {
		return
	}

	dtos := make([]CycleDTO, f.TotalMonths)
	for i := range dtos {
		dto := CycleDTO{Cycle: i, Month: chit.CycleMonth(f, i).String(), Available: true}
		if p, taken := f.PayoutAt(i); taken {
			dto.Available = false
			dto.Recipient = &p.Recipient
		}
		if amount, err := chit.DisbursalAmount(f, i); err != nil {
			dto.PayoutError = err.Error()
		} else {
			v := amount.Int64()
			dto.PayoutAmount = &v
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListAvailableCycles(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadFund(w, r)
	if !ok {
		return
	}
	dtos := []CycleDTO{}
	for i := range chit.AvailableCycles(f) {
		dtos = append(dtos, CycleDTO{Cycle: i, Month: chit.CycleMonth(f, i).String(), Available: true})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCycle returns the stored ledger for a cycle or the synthesized default.
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadFund(w, r)
	if !ok {
		return
	}
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	rec, err := chit.BuildMonthlyLedger(f, cycle)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyRecordDTO(f, rec))
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := chit.FundID(chi.URLParam(r, "id"))
	cycle, ok := cycleParam(w, r)
	if !ok {
		return
	}
	member, ok := memberParam(w, r)
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	patch := chit.PaymentPatch{Paid: req.Paid, Remarks: req.Remarks}
	if req.Method != nil {
		m := chit.PaymentMethod(*req.Method)
		patch.Method = &m
	}

	at := h.Now()
	updated, err := h.Book.Update(r.Context(), id, func(f chit.Fund) (chit.Fund, error) {
		return chit.UpdatePaymentEntry(f, cycle, member, patch, at)
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyRecordDTO(updated, updated.Ledger[cycle]))
}

func (h *Handler) RecordPayout(w http.ResponseWriter, r *http.Request) {
	id := chit.FundID(chi.URLParam(r, "id"))
	var req RecordPayoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Cycle == nil || req.Member == "" {
		writeError(w, http.StatusBadRequest, "cycle and member are required", nil)
		return
	}

	at := h.Now()
	updated, err := h.Book.Update(r.Context(), id, func(f chit.Fund) (chit.Fund, error) {
		return chit.RecordPayout(f, *req.Cycle, req.Member, at)
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	p, _ := updated.PayoutAt(*req.Cycle)
	logging.FromContext(r.Context()).InfoContext(r.Context(), "payout recorded",
		logging.FieldFundID, string(id),
		logging.FieldCycle, p.Cycle,
		logging.FieldMember, p.Recipient,
	)
	writeJSON(w, http.StatusCreated, toPayoutDTO(updated, p))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadFund(w, r)
	if !ok {
		return
	}
	member, ok := memberParam(w, r)
	if !ok {
		return
	}
	st, err := chit.Statement(f, member)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(f, st))
}

// ExportFund streams the fund's ledger as an XLSX workbook (default) or CSV.
func (h *Handler) ExportFund(w http.ResponseWriter, r *http.Request) {
	f, ok := h.loadFund(w, r)
	if !ok {
		return
	}
	rows, err := export.Rows(f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		setAttachment(w, export.ReportFilename(f, "xlsx"))
		err = export.WriteXLSX(w, f.Name, rows)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		setAttachment(w, export.ReportFilename(f, "csv"))
		err = export.WriteCSV(w, rows)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format), nil)
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "export failed",
			logging.FieldFundID, string(f.ID), logging.FieldError, err.Error())
	}
}

func (h *Handler) ExportToSheets(w http.ResponseWriter, r *http.Request) {
	if h.Sheets == nil {
		writeError(w, http.StatusServiceUnavailable, export.ErrSheetsDisabled.Error(), nil)
		return
	}
	f, ok := h.loadFund(w, r)
	if !ok {
		return
	}
	rng, err := h.Sheets.Export(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to export to Google Sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"updated_range": rng})
}

// =============================================================================
// BACKUP HANDLERS
// =============================================================================

func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	setAttachment(w, jsonfile.BackupFilename(h.Now()))
	if err := jsonfile.WriteBackup(w, h.Book.Snapshot()); err != nil {
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "backup failed", logging.FieldError, err.Error())
	}
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	funds, err := jsonfile.ReadBackup(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Book.Restore(r.Context(), funds, r.Header.Get(AdminPasswordHeader)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]int{"funds": len(funds)})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "funds": len(h.Book.List())})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadFund(w http.ResponseWriter, r *http.Request) (chit.Fund, bool) {
	f, err := h.Book.Get(chit.FundID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, err)
		return chit.Fund{}, false
	}
	return f, true
}

func (h *Handler) toDetailDTO(f chit.Fund) FundDetailDTO {
	now := h.Now()
	dto := FundDetailDTO{
		Config:     h.Factory.ToJSON(f),
		StartMonth: f.Start.String(),
		EndMonth:   f.End.String(),
		Active:     chit.IsActive(f, now),
		History:    make([]PayoutDTO, 0, len(f.History)),
		Summary:    toSummaryDTO(f),
		CreatedAt:  formatTime(f.CreatedAt),
	}
	if c, ok := chit.CurrentCycle(f, now); ok {
		dto.CurrentCycle = &c
	}
	for _, p := range f.History {
		dto.History = append(dto.History, toPayoutDTO(f, p))
	}
	return dto
}

func cycleParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "cycle")
	cycle, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid cycle %q", raw), nil)
		return 0, false
	}
	return cycle, true
}

// memberParam returns the member path segment decoded exactly once. chi
// routes on RawPath when the request has one, and then the segment is still
// escaped; otherwise it is already decoded.
func memberParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "member")
	member := raw
	var err error
	if r.URL.RawPath != "" {
		member, err = url.PathUnescape(raw)
	}
	if err != nil || member == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid member %q", raw), nil)
		return "", false
	}
	return member, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func setAttachment(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status for an engine, book or storage error.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *chit.ValidationError
	switch {
	case errors.Is(err, chit.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Invalid admin password", nil)
	case chit.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.IsConflict() {
			status = http.StatusConflict
		}
		writeJSON(w, status, ErrorResponse{Error: verr.Message, Code: verr.Code})
	case errors.Is(err, chit.ErrFundExists):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, chit.ErrConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, chit.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		logging.FromContext(r.Context()).ErrorContext(r.Context(), "request failed", logging.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
