package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/domain"
	"github.com/amjewellery633-lang/AM-JEWEL-ERP/internal/report"
)

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		customers, err := a.service.FindCustomers(r.Context(), r.URL.Query().Get("phone"))
		if err != nil {
			writeServiceError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
	case http.MethodPost:
		var req domain.CustomerCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.CreateCustomer(r.Context(), actorFrom(r), req)
		if err != nil {
			writeServiceError(w, err, http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusCreated, customer)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleRates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		board, err := a.service.RateBoard(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			writeServiceError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rates": board})
	case http.MethodPost:
		var req domain.MetalRateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rate, err := a.service.PublishRate(r.Context(), actorFrom(r), req)
		if err != nil {
			writeServiceError(w, err, http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusCreated, rate)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleRateLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	metal := domain.MetalType(strings.TrimSpace(r.PathValue("metal")))
	resolution, err := a.service.ResolveRate(r.Context(), metal, r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var draft domain.TransactionDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.SaveTransaction(r.Context(), actorFrom(r), draft)
	if err != nil {
		writeServiceError(w, err, http.StatusUnprocessableEntity)
		return
	}
	status := http.StatusCreated
	if draft.BillID != nil {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (a *API) handleTransactionPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var draft domain.TransactionDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	preview, err := a.service.PreviewTransaction(r.Context(), draft)
	if err != nil {
		writeServiceError(w, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (a *API) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	billID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// view=draft returns the bill reopened for editing, total locked.
	if r.URL.Query().Get("view") == "draft" {
		draft, err := a.service.LoadDraft(r.Context(), billID)
		if err != nil {
			writeServiceError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, draft)
		return
	}

	resp, err := a.service.GetTransaction(r.Context(), billID)
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	billID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req domain.BookingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Status) == domain.BookingStatusCancelled {
		if !a.pinLimiter.Allow("pin:booking:" + clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
			return
		}
		if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
			writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
			return
		}
	}

	booking, err := a.service.UpdateBookingStatus(r.Context(), actorFrom(r), billID, strings.TrimSpace(req.Status))
	if err != nil {
		writeServiceError(w, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"booking":    booking,
		"amount_due": booking.AmountDue(),
	})
}

func (a *API) handleLayaway(w http.ResponseWriter, r *http.Request) {
	billID, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		statement, err := a.service.LayawayStatement(r.Context(), billID)
		if err != nil {
			writeServiceError(w, err, http.StatusInternalServerError)
			return
		}
		if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "html") {
			writeHTML(w, layawayStatementToPrintableHTML(statement))
			return
		}
		writeJSON(w, http.StatusOK, statement)
	case http.MethodPost:
		var req domain.LayawayPaymentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		statement, err := a.service.AppendLayawayPayment(r.Context(), actorFrom(r), billID, req)
		if err != nil {
			writeServiceError(w, err, http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusCreated, statement)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleExchanges(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		req := domain.ExchangeListRequest{
			Search:    query.Get("search"),
			StartDate: query.Get("start_date"),
			EndDate:   query.Get("end_date"),
		}
		ledger, err := a.service.ListExchanges(r.Context(), req)
		if err != nil {
			writeServiceError(w, err, http.StatusInternalServerError)
			return
		}

		switch strings.ToLower(strings.TrimSpace(query.Get("format"))) {
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="old-gold-exchange.csv"`)
			w.WriteHeader(http.StatusOK)
			if err := report.WriteExchangeCSV(w, ledger); err != nil {
				logExportFailure("csv", err)
			}
		case "xlsx":
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", `attachment; filename="old-gold-exchange.xlsx"`)
			w.WriteHeader(http.StatusOK)
			if err := report.WriteExchangeWorkbook(w, ledger); err != nil {
				logExportFailure("xlsx", err)
			}
		default:
			writeJSON(w, http.StatusOK, ledger)
		}
	case http.MethodPost:
		var entry domain.ExchangeEntry
		if err := decodeJSON(r, &entry); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		row, err := a.service.CreateExchange(r.Context(), actorFrom(r), entry)
		if err != nil {
			writeServiceError(w, err, http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusCreated, row)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleExchangeActions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var entry domain.ExchangeEntry
		if err := decodeJSON(r, &entry); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		row, err := a.service.UpdateExchange(r.Context(), actorFrom(r), id, entry)
		if err != nil {
			writeServiceError(w, err, http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusOK, row)
	case http.MethodDelete:
		if err := a.service.DeleteExchange(r.Context(), actorFrom(r), id); err != nil {
			writeServiceError(w, err, http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.service.ListInventoryItems(r.Context())
		if err != nil {
			writeServiceError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var item domain.InventoryItem
		if err := decodeJSON(r, &item); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := a.service.CreateInventoryItem(r.Context(), actorFrom(r), item)
		if err != nil {
			writeServiceError(w, err, http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		writeMethodNotAllowed(w)
	}
}

// handleBarcodeLookup debounces per operator; a request overtaken by a newer
// scan from the same operator answers stale=true.
func (a *API) handleBarcodeLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	resp, err := a.barcodes.For(actorFrom(r).Username).Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePurchaseBills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.PurchaseBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bill, err := a.service.CreatePurchaseBill(r.Context(), actorFrom(r), req)
	if err != nil {
		writeServiceError(w, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (a *API) handlePurchaseBill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	bill, err := a.service.GetPurchaseBill(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "html") {
		writeHTML(w, purchaseSlipToPrintableHTML(bill))
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 200, 1000)
	logs, err := a.service.ListAuditLogs(r.Context(), actorFrom(r), r.URL.Query().Get("date"), limit)
	if err != nil {
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, body)
}
