package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/service-calculator/internal/catalog"
	"github.com/eugenenazirov/service-calculator/internal/planner"
	"github.com/eugenenazirov/service-calculator/internal/report"
	"github.com/eugenenazirov/service-calculator/internal/solver"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const defaultTolerance = 0.01

// Handler wires the planner and catalog store into HTTP handlers.
type Handler struct {
	planner *planner.Planner
	store   catalog.Store

	clock     func() time.Time
	tolerance float64

	mu               sync.RWMutex
	catalogUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithTolerance sets the relative deviation still graded as a close match.
func WithTolerance(tolerance float64) HandlerOption {
	return func(h *Handler) {
		if tolerance > 0 {
			h.tolerance = tolerance
		}
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(p *planner.Planner, store catalog.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		planner:   p,
		store:     store,
		tolerance: defaultTolerance,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.catalogUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeCatalog(r.Context(), w, http.StatusOK, "")
}

func (h *Handler) handlePutCatalog(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	next := catalog.Catalog{ProjectName: req.ProjectName, Services: make([]catalog.Item, len(req.Services))}
	for i, svc := range req.Services {
		if !svc.Price.Set {
			writeError(w, http.StatusBadRequest, "Invalid catalog", "service "+strconv.Itoa(i)+" is missing a price")
			return
		}
		next.Services[i] = catalog.Item{Name: svc.Name, Price: svc.Price.Value}
	}

	if err := h.store.Replace(r.Context(), next); err != nil {
		writeStoreError(w, err)
		return
	}

	h.markCatalogUpdated()
	h.writeCatalog(r.Context(), w, http.StatusOK, "Catalog updated successfully")
}

func (h *Handler) handlePutProjectName(w http.ResponseWriter, r *http.Request) {
	var req projectNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := h.store.SetProjectName(r.Context(), req.ProjectName); err != nil {
		writeStoreError(w, err)
		return
	}

	h.markCatalogUpdated()
	h.writeCatalog(r.Context(), w, http.StatusOK, "Project name updated successfully")
}

func (h *Handler) handleAddService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	index, err := h.store.AddItem(r.Context(), catalog.Item{Name: req.Name, Price: req.Price.Value})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.markCatalogUpdated()
	h.writeService(r.Context(), w, http.StatusCreated, index)
}

func (h *Handler) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	index, ok := serviceIndex(w, r)
	if !ok {
		return
	}

	var req servicePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	patch := catalog.ItemPatch{Name: req.Name}
	if req.Price.Set {
		price := req.Price.Value
		patch.Price = &price
	}

	if _, err := h.store.UpdateItem(r.Context(), index, patch); err != nil {
		writeStoreError(w, err)
		return
	}

	h.markCatalogUpdated()
	h.writeService(r.Context(), w, http.StatusOK, index)
}

func (h *Handler) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	index, ok := serviceIndex(w, r)
	if !ok {
		return
	}

	if err := h.store.RemoveItem(r.Context(), index); err != nil {
		writeStoreError(w, err)
		return
	}

	h.markCatalogUpdated()
	h.writeCatalog(r.Context(), w, http.StatusOK, "Service removed successfully")
}

func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if !req.Target.Set || req.Target.Value <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid target", planner.ErrInvalidTarget.Error())
		return
	}

	mode, err := solver.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error(), "mode must be allocate or reduce")
		return
	}

	quantities := make([]int, len(req.Quantities))
	for i, q := range req.Quantities {
		quantities[i] = int(q)
	}
	if req.Quantities == nil {
		snapshot, err := h.store.Snapshot(r.Context())
		if err != nil {
			writeInternalError(w, err)
			return
		}
		quantities = make([]int, len(snapshot.Services))
	}

	outcome, err := h.planner.Calculate(r.Context(), planner.Request{
		Quantities:     quantities,
		Target:         req.Target.Value,
		Mode:           mode,
		Strategy:       req.Strategy,
		FloorAtCurrent: req.FloorAtCurrent,
	})
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrInvalidTarget):
			writeError(w, http.StatusBadRequest, "Invalid target", err.Error())
		case errors.Is(err, planner.ErrQuantityMismatch):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error(), "send one quantity per catalog service, or omit quantities")
		case errors.Is(err, solver.ErrUnknownStrategy):
			writeError(w, http.StatusBadRequest, "Invalid request", err.Error(), "strategy must be auto, exact or greedy")
		default:
			writeInternalError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, h.buildSolveResponse(outcome))
}

func (h *Handler) buildSolveResponse(o planner.Outcome) solveResponse {
	lines := make([]solveLine, len(o.Catalog.Services))
	for i, svc := range o.Catalog.Services {
		q := o.Result.Quantities[i]
		lines[i] = solveLine{
			Index:     i,
			Name:      svc.Name,
			Price:     svc.Price,
			Current:   o.Bounds[i],
			Quantity:  q,
			Reduction: o.Result.Reductions[i],
			Subtotal:  svc.Price * float64(q),
		}
	}

	return solveResponse{
		ProjectName:       o.Catalog.ProjectName,
		Mode:              o.Mode.String(),
		Strategy:          o.Strategy.String(),
		Target:            o.Target,
		Achieved:          o.Result.Achieved,
		Residual:          o.Result.Residual,
		OriginalTotal:     o.OriginalTotal,
		FinalTotal:        o.FinalTotal,
		Quality:           string(report.Classify(o.Result.Residual, o.Target, h.tolerance)),
		Cached:            o.Cached,
		CalculationTimeMs: o.Elapsed.Milliseconds(),
		Items:             lines,
	}
}

func (h *Handler) writeCatalog(ctx context.Context, w http.ResponseWriter, status int, message string) {
	snapshot, err := h.store.Snapshot(ctx)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	services := make([]serviceView, len(snapshot.Services))
	for i, svc := range snapshot.Services {
		services[i] = serviceView{Index: i, Name: svc.Name, Price: svc.Price}
	}

	writeJSON(w, status, catalogResponse{
		ProjectName: snapshot.ProjectName,
		Services:    services,
		UpdatedAt:   h.currentCatalogUpdatedAt(),
		Message:     message,
	})
}

func (h *Handler) writeService(ctx context.Context, w http.ResponseWriter, status int, index int) {
	snapshot, err := h.store.Snapshot(ctx)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if index < 0 || index >= len(snapshot.Services) {
		writeError(w, http.StatusNotFound, "Service not found", catalog.ErrItemNotFound.Error())
		return
	}

	svc := snapshot.Services[index]
	writeJSON(w, status, serviceResponse{
		Service:   serviceView{Index: index, Name: svc.Name, Price: svc.Price},
		UpdatedAt: h.currentCatalogUpdatedAt(),
	})
}

func (h *Handler) currentCatalogUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.catalogUpdatedAt
}

func (h *Handler) markCatalogUpdated() {
	h.mu.Lock()
	h.catalogUpdatedAt = h.clock()
	h.mu.Unlock()
}

func serviceIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.PathValue("index"))
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "service index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "Service not found", err.Error())
	case errors.Is(err, catalog.ErrInvalidItem):
		writeError(w, http.StatusBadRequest, "Invalid service", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
