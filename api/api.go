// Package api exposes the order workflow over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/orderstack/fulfillment/auth"
	"github.com/orderstack/fulfillment/observe"
	"github.com/orderstack/fulfillment/order"
	"github.com/orderstack/fulfillment/workflow"
)

// Server handles the order endpoints.
type Server struct {
	wf     *workflow.Workflow
	logger observe.Logger
}

// NewServer creates the HTTP server around a workflow.
func NewServer(wf *workflow.Workflow, logger observe.Logger) *Server {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Server{wf: wf, logger: logger}
}

// Register installs the order routes on the mux. When verifier is non-nil
// the admin routes are installed behind it; otherwise they are omitted.
func (s *Server) Register(mux *http.ServeMux, verifier *auth.Verifier, adminRole string) {
	mux.HandleFunc("POST /orders", s.handleCreate)
	mux.HandleFunc("POST /orders/{id}/process", s.handleProcess)
	mux.HandleFunc("GET /orders/{id}", s.handleGet)
	mux.HandleFunc("GET /orders/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /orders", s.handleList)

	if verifier != nil {
		mux.Handle("PUT /admin/orders/{id}/status",
			auth.RequireRole(verifier, adminRole, http.HandlerFunc(s.handleOverride)))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

type createOrderRequest struct {
	CustomerID      string        `json:"customer_id"`
	Items           []order.Item  `json:"items"`
	ShippingAddress order.Address `json:"shipping_address"`
	PaymentMethod   string        `json:"payment_method"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := s.wf.CreateOrder(r.Context(), workflow.CreateOrderRequest{
		CustomerID:      req.CustomerID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// handleProcess runs fulfillment for a created order. A step failure is a
// legitimate workflow outcome, so the failed order is returned with 200 and
// the failure is visible in its status and failure reason.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	o, err := s.wf.ProcessOrder(r.Context(), id)
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
		return
	case err != nil && o == nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	case err != nil && o.Status != order.StatusFailed:
		// Not processable in its current state.
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	o, err := s.wf.GetOrder(r.Context(), r.PathValue("id"))
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.wf.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	offset, err := pagingParam(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := pagingParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := s.wf.ListOrders(r.Context(), customerID, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// pagingParam parses a non-negative integer query parameter, treating an
// absent parameter as zero.
func pagingParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

type overrideRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

var overridableStatuses = map[order.Status]bool{
	order.StatusCreated:           true,
	order.StatusInventoryChecked:  true,
	order.StatusPaymentProcessing: true,
	order.StatusPaymentCompleted:  true,
	order.StatusPaymentFailed:     true,
	order.StatusShipping:          true,
	order.StatusShipped:           true,
	order.StatusFailed:            true,
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := order.Status(req.Status)
	if !overridableStatuses[status] {
		writeError(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	o, err := s.wf.OverrideStatus(r.Context(), r.PathValue("id"), status, req.Reason)
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, o)
}
