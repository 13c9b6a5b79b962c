// Package api serves the order store over HTTP.
//
// Routes:
//   - GET  /api/orders              one page of orders; query params page, page_size, sort, dir, status, q
//   - GET  /api/orders/{id}         a single order
//   - PUT  /api/orders/{id}/status  body {"status": "shipped"}
//   - GET  /api/orders/export       csv or json download (format, status)
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rovshanmuradov/orderdesk/internal/export"
	"github.com/rovshanmuradov/orderdesk/internal/order"
	"github.com/rovshanmuradov/orderdesk/internal/query"
	"github.com/rovshanmuradov/orderdesk/internal/store"
	"go.uber.org/zap"
)

// Store is the part of store.Store the API needs.
type Store interface {
	List(ctx context.Context) ([]order.Order, error)
	Get(ctx context.Context, id string) (order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status) (order.Order, error)
}

// Observer records request durations; *metrics.Collector implements it.
type Observer interface {
	ObserveRequest(op string, code int, d time.Duration)
}

// Handler routes order API requests.
type Handler struct {
	store    Store
	exporter *export.Exporter
	observer Observer
	logger   *zap.Logger
	mux      *http.ServeMux

	// OnStatusUpdated, when set, runs after a successful status update.
	OnStatusUpdated func(order.Order)
}

// Page is the response of the list route.
type Page struct {
	Orders     []order.Order `json:"orders"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}

type errorBody struct {
	Error string `json:"error"`
}

type statusBody struct {
	Status string `json:"status"`
}

// NewHandler creates the API handler. observer may be nil.
func NewHandler(s Store, observer Observer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		store:    s,
		exporter: export.New(logger),
		observer: observer,
		logger:   logger.Named("api"),
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /api/orders", h.timed("list", h.list))
	h.mux.HandleFunc("GET /api/orders/export", h.timed("export", h.export))
	h.mux.HandleFunc("GET /api/orders/{id}", h.timed("get", h.get))
	h.mux.HandleFunc("PUT /api/orders/{id}/status", h.timed("update_status", h.updateStatus))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) int {
	state, err := parseState(r)
	if err != nil {
		return h.writeError(w, http.StatusBadRequest, err)
	}

	orders, err := h.store.List(r.Context())
	if err != nil {
		return h.writeStoreError(w, err)
	}

	res := state.Apply(orders)
	return h.writeJSON(w, http.StatusOK, Page{
		Orders:     res.Rows,
		Page:       state.Page,
		PageSize:   state.PageSize,
		Total:      res.Total,
		TotalPages: res.TotalPages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) int {
	o, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return h.writeStoreError(w, err)
	}
	return h.writeJSON(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) int {
	var body statusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return h.writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
	}
	status, err := order.ParseStatus(body.Status)
	if err != nil {
		return h.writeError(w, http.StatusBadRequest, err)
	}

	o, err := h.store.UpdateStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		return h.writeStoreError(w, err)
	}
	if h.OnStatusUpdated != nil {
		h.OnStatusUpdated(o)
	}
	return h.writeJSON(w, http.StatusOK, o)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) int {
	format := export.FormatCSV
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			return h.writeError(w, http.StatusBadRequest, err)
		}
		format = f
	}

	var opts export.Options
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := order.ParseStatus(v)
		if err != nil {
			return h.writeError(w, http.StatusBadRequest, err)
		}
		opts.Status = st
	}

	orders, err := h.store.List(r.Context())
	if err != nil {
		return h.writeStoreError(w, err)
	}

	contentType := "text/csv"
	if format == export.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=orders.%s", format))
	w.WriteHeader(http.StatusOK)

	if err := h.exporter.Write(w, export.Filter(orders, opts), format); err != nil {
		h.logger.Warn("Export write failed", zap.Error(err))
	}
	return http.StatusOK
}

// timed wraps a route that reports its status code.
func (h *Handler) timed(op string, fn func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		code := fn(w, r)
		elapsed := time.Since(start)

		if h.observer != nil {
			h.observer.ObserveRequest(op, code, elapsed)
		}
		h.logger.Debug("Request served",
			zap.String("op", op),
			zap.String("path", r.URL.Path),
			zap.Int("code", code),
			zap.Duration("elapsed", elapsed))
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, order.ErrInvalidStatus):
		return h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return h.writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("Store request failed", zap.Error(err))
		return h.writeError(w, http.StatusInternalServerError, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, err error) int {
	return h.writeJSON(w, code, errorBody{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Response write failed", zap.Error(err))
	}
	return code
}

func parseState(r *http.Request) (query.State, error) {
	q := r.URL.Query()
	state := query.Default()

	if v := q.Get("sort"); v != "" {
		c, err := query.ParseColumn(v)
		if err != nil {
			return state, err
		}
		state.SortColumn = c
		state.SortDirection = query.Asc
	}
	switch q.Get("dir") {
	case "":
	case string(query.Asc):
		state.SortDirection = query.Asc
	case string(query.Desc):
		state.SortDirection = query.Desc
	default:
		return state, fmt.Errorf("invalid dir %q", q.Get("dir"))
	}

	if v := q.Get("status"); v != "" && v != query.FilterAll {
		st, err := order.ParseStatus(v)
		if err != nil {
			return state, err
		}
		state = state.SetStatusFilter(string(st))
	}
	state = state.SetSearch(q.Get("q"))

	if v := q.Get("page_size"); v != "" {
		if v == "all" {
			state = state.SetPageSize(query.PageSizeAll)
		} else {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return state, fmt.Errorf("invalid page_size %q", v)
			}
			state = state.SetPageSize(n)
		}
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return state, fmt.Errorf("invalid page %q", v)
		}
		state = state.SetPage(n)
	}
	return state, nil
}
