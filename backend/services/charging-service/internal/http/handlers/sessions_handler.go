package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"campusev/backend/libs/httpx"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

// Reservations is the reservation engine as seen by HTTP.
type Reservations interface {
	Reserve(ctx context.Context, actor service.Actor, input service.ReserveInput) (*models.Session, error)
	Cancel(ctx context.Context, actor service.Actor, sessionID int64) (*models.Session, error)
	ListUserSessions(ctx context.Context, actor service.Actor, userID int64) ([]models.Session, error)
}

// Lifecycle starts and stops charging.
type Lifecycle interface {
	Start(ctx context.Context, actor service.Actor, sessionID int64) (*models.Session, error)
	Stop(ctx context.Context, actor service.Actor, sessionID int64) (*models.Session, error)
}

// SessionReader loads a single session.
type SessionReader interface {
	GetSession(ctx context.Context, actor service.Actor, id int64) (*models.Session, error)
}

// SessionsHandler serves /charging-sessions.
type SessionsHandler struct {
	reservations Reservations
	lifecycle    Lifecycle
	reader       SessionReader
	logger       *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(reservations Reservations, lifecycle Lifecycle, reader SessionReader, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{
		reservations: reservations,
		lifecycle:    lifecycle,
		reader:       reader,
		logger:       logger,
	}
}

type reserveRequest struct {
	UserID    int64  `json:"user_id" validate:"omitempty,gt=0"`
	PileID    int64  `json:"pile_id" validate:"required,gt=0"`
	VehicleID int64  `json:"vehicle_id" validate:"required,gt=0"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type reserveResponse struct {
	SessionID int64  `json:"session_id"`
	Message   string `json:"message"`
}

type transitionResponse struct {
	SessionID int64                `json:"session_id"`
	Status    models.SessionStatus `json:"status"`
	StartedAt *time.Time           `json:"started_at,omitempty"`
}

type stopResponse struct {
	SessionID int64   `json:"session_id"`
	EnergyKWh float64 `json:"energy_kwh"`
	FeeAmount float64 `json:"fee_amount"`
}

// Reserve handles POST /charging-sessions/reserve.
func (h *SessionsHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	var req reserveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	session, err := h.reservations.Reserve(r.Context(), actor, service.ReserveInput{
		UserID:         req.UserID,
		PileID:         req.PileID,
		VehicleID:      req.VehicleID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, reserveResponse{SessionID: session.ID, Message: "reserved"})
}

// Cancel handles POST /charging-sessions/{id}/cancel.
func (h *SessionsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.reservations.Cancel)
}

// Start handles POST /charging-sessions/{id}/start.
func (h *SessionsHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Start)
}

// Stop handles POST /charging-sessions/{id}/stop.
func (h *SessionsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	session, err := h.lifecycle.Stop(r.Context(), actor, id)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	resp := stopResponse{SessionID: session.ID}
	if session.EnergyKWh != nil {
		resp.EnergyKWh = *session.EnergyKWh
	}
	if session.FeeAmount != nil {
		resp.FeeAmount = *session.FeeAmount
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

type transitionFunc func(ctx context.Context, actor service.Actor, sessionID int64) (*models.Session, error)

func (h *SessionsHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	session, err := fn(r.Context(), actor, id)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, transitionResponse{
		SessionID: session.ID,
		Status:    session.Status,
		StartedAt: session.StartedAt,
	})
}

func (h *SessionsHandler) target(w http.ResponseWriter, r *http.Request) (service.Actor, int64, bool) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return service.Actor{}, 0, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return service.Actor{}, 0, false
	}
	return actor, id, true
}

// ListByUser handles GET /charging-sessions/user/{user_id}.
func (h *SessionsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	userID, err := pathID(r, "user_id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	sessions, err := h.reservations.ListUserSessions(r.Context(), actor, userID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessions)
}

// Get handles GET /charging-sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	session, err := h.reader.GetSession(r.Context(), actor, id)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, session)
}
