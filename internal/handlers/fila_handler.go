package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"

	"fila-system/config"
	"fila-system/internal/services"
	"fila-system/internal/store"
	"fila-system/models"
	"fila-system/security"
)

type FilaHandler struct {
	app          *pocketbase.PocketBase
	queueService *services.QueueService
	statsService *services.StatsService
	limiter      *security.RateLimiter
	cfg          *config.Config
}

func NewFilaHandler(
	app *pocketbase.PocketBase,
	queueService *services.QueueService,
	statsService *services.StatsService,
	limiter *security.RateLimiter,
	cfg *config.Config,
) *FilaHandler {
	return &FilaHandler{
		app:          app,
		queueService: queueService,
		statsService: statsService,
		limiter:      limiter,
		cfg:          cfg,
	}
}

type joinResponse struct {
	models.QueueEntry
	Position      int  `json:"position"`
	ETAMinutes    int  `json:"etaMinutes"`
	AlreadyQueued bool `json:"alreadyQueued,omitempty"`
}

// List - ordered queue listing
func (h *FilaHandler) List(e *core.RequestEvent) error {
	entries, err := h.queueService.List(e.Request.Context())
	if err != nil {
		slog.Error("queue listing failed", "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Failed to list queue", err)
	}

	return e.JSON(http.StatusOK, entries)
}

// Join - add a person to the queue
func (h *FilaHandler) Join(e *core.RequestEvent) error {
	ctx := e.Request.Context()

	if h.limiter != nil && !h.limiter.Allow(ctx, e.RealIP()) {
		return apis.NewApiError(http.StatusTooManyRequests, "Too many join attempts, try again later", nil)
	}

	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	entry, alreadyQueued, err := h.queueService.Join(ctx, req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, services.ErrEmptyName) {
			return apis.NewBadRequestError("Name is required", err)
		}
		slog.Error("join failed", "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Failed to join queue", err)
	}

	position, eta, err := h.queueService.PositionInfo(ctx, entry.ID)
	if err != nil {
		// The entry exists; degrade to position-less response rather
		// than failing the join.
		slog.Warn("position derivation failed", "entry", entry.ID, "error", err)
	}

	resp := joinResponse{
		QueueEntry:    entry,
		Position:      position,
		ETAMinutes:    eta,
		AlreadyQueued: alreadyQueued,
	}

	if alreadyQueued {
		return e.JSON(http.StatusOK, resp)
	}
	return e.JSON(http.StatusCreated, resp)
}

// Leave - remove a person from the queue by id
func (h *FilaHandler) Leave(e *core.RequestEvent) error {
	id := e.Request.PathValue("id")
	if id == "" {
		return apis.NewBadRequestError("Entry id required", nil)
	}

	entry, err := h.queueService.Leave(e.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apis.NewNotFoundError("Entry not in queue", err)
		}
		slog.Error("leave failed", "id", id, "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Failed to remove entry", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Removed from queue",
		"entry":   entry,
	})
}

// Stats - service statistics snapshot
func (h *FilaHandler) Stats(e *core.RequestEvent) error {
	snapshot, err := h.statsService.Snapshot(e.Request.Context())
	if err != nil {
		slog.Error("stats aggregation failed", "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Failed to compute statistics", err)
	}

	return e.JSON(http.StatusOK, snapshot)
}

// DequeueNext - administrator action: service the head of the queue
func (h *FilaHandler) DequeueNext(e *core.RequestEvent) error {
	if h.cfg.AdminPasswordHash != "" {
		password := e.Request.Header.Get("X-Admin-Password")
		if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminPasswordHash), []byte(password)); err != nil {
			return apis.NewUnauthorizedError("Admin password required", nil)
		}
	}

	entry, err := h.queueService.DequeueNext(e.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apis.NewNotFoundError("Queue is empty", err)
		}
		slog.Error("dequeue failed", "error", err)
		return apis.NewApiError(http.StatusInternalServerError, "Failed to dequeue", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Serviced",
		"entry":   entry,
	})
}
