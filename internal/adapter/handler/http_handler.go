package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/tmn08/ward-supply/internal/core/domain"
	"github.com/tmn08/ward-supply/internal/core/feed"
	"github.com/tmn08/ward-supply/internal/core/service"
	"github.com/tmn08/ward-supply/internal/logging"
	"github.com/tmn08/ward-supply/internal/port"
)

type HTTPHandler struct {
	allocator *service.AllocationService
	transfers *service.TransferService
	inventory *service.InventoryService
	dashboard *service.DashboardService
	taskFeed  *feed.TaskFeed
	bus       port.EventBus
	validate  *validator.Validate
	logger    *logrus.Logger
}

func NewHTTPHandler(
	allocator *service.AllocationService,
	transfers *service.TransferService,
	inventory *service.InventoryService,
	dashboard *service.DashboardService,
	taskFeed *feed.TaskFeed,
	bus port.EventBus,
) *HTTPHandler {
	return &HTTPHandler{
		allocator: allocator,
		transfers: transfers,
		inventory: inventory,
		dashboard: dashboard,
		taskFeed:  taskFeed,
		bus:       bus,
		validate:  validator.New(),
		logger:    logging.Logger(),
	}
}

// Register mounts all routes on the given mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/allocate", h.Allocate)
	mux.HandleFunc("/api/transfers", h.CreateTransfer)
	mux.HandleFunc("/api/transfers/accept", h.AcceptTransfer)
	mux.HandleFunc("/api/transfers/complete", h.CompleteTransfer)
	mux.HandleFunc("/api/tasks", h.ActiveTasks)
	mux.HandleFunc("/api/inventory", h.Inventory)
	mux.HandleFunc("/api/dashboard", h.Dashboard)
	mux.HandleFunc("/api/events", h.RecentEvents)
}

type actorFields struct {
	ActorID   string `json:"actor_id" validate:"required"`
	ActorRole string `json:"actor_role" validate:"required,oneof=nurse porter admin"`
}

func (a actorFields) actor() domain.Actor {
	return domain.Actor{ID: a.ActorID, Role: domain.Role(a.ActorRole)}
}

type AllocateRequest struct {
	DrugName             string `json:"drug_name" validate:"required"`
	Qty                  int    `json:"qty" validate:"required,gt=0"`
	RequestingLocationID int64  `json:"requesting_location_id" validate:"required"`
}

type CreateTransferRequest struct {
	actorFields
	DrugName string `json:"drug_name" validate:"required"`
	Qty      int    `json:"qty" validate:"required,gt=0"`
	// FromLocationID of zero lets the allocation engine choose a source.
	FromLocationID int64 `json:"from_location_id"`
	ToLocationID   int64 `json:"to_location_id" validate:"required"`
}

type TaskActionRequest struct {
	actorFields
	TaskID string `json:"task_id" validate:"required,uuid4"`
}

type InwardSupplyRequest struct {
	actorFields
	LocationID int64     `json:"location_id" validate:"required"`
	DrugName   string    `json:"drug_name" validate:"required"`
	Qty        int       `json:"qty" validate:"required,gt=0"`
	ExpiryDate time.Time `json:"expiry_date"`
}

type APIResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Data         any    `json:"data,omitempty"`
	Fields       any    `json:"fields,omitempty"`
	MaxAvailable *int   `json:"max_available,omitempty"`
}

func (h *HTTPHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if !h.decode(w, r, &req) {
		return
	}

	source, err := h.allocator.LocateSource(r.Context(), req.DrugName, req.Qty, req.RequestingLocationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: source})
}

func (h *HTTPHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	fromID := req.FromLocationID
	if fromID == 0 {
		source, err := h.allocator.LocateSource(r.Context(), req.DrugName, req.Qty, req.ToLocationID)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		fromID = source.LocationID
	}

	task, err := h.transfers.RequestTransfer(r.Context(), req.actor(), req.DrugName, req.Qty, fromID, req.ToLocationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: task})
}

func (h *HTTPHandler) AcceptTransfer(w http.ResponseWriter, r *http.Request) {
	var req TaskActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.transfers.AcceptTransfer(r.Context(), req.actor(), req.TaskID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "transfer accepted"})
}

func (h *HTTPHandler) CompleteTransfer(w http.ResponseWriter, r *http.Request) {
	var req TaskActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.transfers.CompleteTransfer(r.Context(), req.actor(), req.TaskID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "transfer delivered"})
}

func (h *HTTPHandler) ActiveTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: h.taskFeed.Snapshot()})
}

func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		locationID, err := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "invalid location_id"})
			return
		}
		records, err := h.inventory.LocationStock(r.Context(), locationID)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: records})

	case http.MethodPost:
		var req InwardSupplyRequest
		if !h.decode(w, r, &req) {
			return
		}
		rec, err := h.inventory.RecordInwardSupply(r.Context(), req.actor(), req.LocationID, req.DrugName, req.Qty, req.ExpiryDate)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: rec})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: stats})
}

func (h *HTTPHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.bus.RecentEvents(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: events})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode parses and validates a JSON POST body, writing the error response
// itself when the request is unusable.
func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "validation failed",
			Fields:  validationFields(err),
		})
		return false
	}
	return true
}

func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[ve.Field()] = ve.Tag()
	}
	return fields
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: err.Error()})
	case errors.Is(err, service.ErrDrugUnavailable):
		writeJSON(w, http.StatusNotFound, APIResponse{Success: false, Message: "drug unavailable in entire network"})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusGone, APIResponse{
			Success:      false,
			Message:      "not enough stock found",
			MaxAvailable: &insufficient.MaxAvailable,
		})
	case errors.Is(err, service.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, APIResponse{Success: false, Message: "duplicate request"})
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, APIResponse{Success: false, Message: "task already claimed or completed"})
	case errors.Is(err, service.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, APIResponse{Success: false, Message: "task not found"})
	case errors.Is(err, service.ErrRoleForbidden):
		writeJSON(w, http.StatusForbidden, APIResponse{Success: false, Message: "role not permitted"})
	default:
		h.logger.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, APIResponse{Success: false, Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
