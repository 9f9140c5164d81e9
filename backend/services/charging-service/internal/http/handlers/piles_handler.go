package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
	"campusev/backend/services/charging-service/internal/models"
	"campusev/backend/services/charging-service/internal/service"
)

// Piles is the pile administration surface.
type Piles interface {
	ListAreas(ctx context.Context) ([]models.Location, error)
	ListPiles(ctx context.Context, locationID int64) ([]models.Pile, error)
	GetPile(ctx context.Context, id int64) (*models.Pile, error)
	CreatePile(ctx context.Context, input service.CreatePileInput) (*models.Pile, error)
	UpdatePile(ctx context.Context, id int64, input service.UpdatePileInput) (*models.Pile, error)
	DeletePile(ctx context.Context, id int64) error
	ChargingLogs(ctx context.Context) ([]models.Session, error)
}

// Calendars renders slot calendars.
type Calendars interface {
	Calendar(ctx context.Context, pileID int64, date string, userID int64) (*service.Calendar, error)
}

// PilesHandler serves charging areas, piles, slots and logs.
type PilesHandler struct {
	piles     Piles
	calendars Calendars
	logger    *zap.Logger
}

// NewPilesHandler builds handler set.
func NewPilesHandler(piles Piles, calendars Calendars, logger *zap.Logger) *PilesHandler {
	return &PilesHandler{piles: piles, calendars: calendars, logger: logger}
}

type areaResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type createPileRequest struct {
	LocationID int64   `json:"location_id" validate:"required,gt=0"`
	Name       string  `json:"name" validate:"required,max=50"`
	Connector  string  `json:"connector" validate:"required,max=20"`
	PowerKW    float64 `json:"power_kw" validate:"gt=0"`
	FeeRate    float64 `json:"fee_rate" validate:"gte=0"`
}

type updatePileRequest struct {
	Name      *string  `json:"name" validate:"omitempty,max=50"`
	Connector *string  `json:"connector" validate:"omitempty,max=20"`
	PowerKW   *float64 `json:"power_kw" validate:"omitempty,gt=0"`
	FeeRate   *float64 `json:"fee_rate" validate:"omitempty,gte=0"`
	Offline   *bool    `json:"offline"`
}

// ListAreas handles GET /charging-areas.
func (h *PilesHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.piles.ListAreas(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	out := make([]areaResponse, 0, len(areas))
	for _, a := range areas {
		out = append(out, areaResponse{ID: a.ID, Name: a.Name, Latitude: a.Latitude, Longitude: a.Longitude})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// List handles GET /charging-piles?location_id=.
func (h *PilesHandler) List(w http.ResponseWriter, r *http.Request) {
	locationID, err := queryID(r, "location_id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	piles, err := h.piles.ListPiles(r.Context(), locationID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, piles)
}

// Get handles GET /charging-piles/{id}.
func (h *PilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	pile, err := h.piles.GetPile(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pile)
}

// Create handles POST /charging-piles.
func (h *PilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	pile, err := h.piles.CreatePile(r.Context(), service.CreatePileInput{
		LocationID: req.LocationID,
		Name:       req.Name,
		Connector:  req.Connector,
		PowerKW:    req.PowerKW,
		FeeRate:    req.FeeRate,
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, pile)
}

// Update handles PUT /charging-piles/{id}.
func (h *PilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	var req updatePileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	pile, err := h.piles.UpdatePile(r.Context(), id, service.UpdatePileInput{
		Name:      req.Name,
		Connector: req.Connector,
		PowerKW:   req.PowerKW,
		FeeRate:   req.FeeRate,
		Offline:   req.Offline,
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pile)
}

// Delete handles DELETE /charging-piles/{id}.
func (h *PilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if err := h.piles.DeletePile(r.Context(), id); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "pile deleted"})
}

// Slots handles GET /charging-piles/{id}/slots?date=&user_id=.
func (h *PilesHandler) Slots(w http.ResponseWriter, r *http.Request) {
	actor, err := ActorFromRequest(r)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		httpx.WriteError(w, h.logger, apperrors.New(apperrors.CodeValidation, "date is required"))
		return
	}
	requested, err := queryID(r, "user_id")
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	userID, err := actor.ResolveUser(requested)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	calendar, err := h.calendars.Calendar(r.Context(), id, date, userID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, calendar.Slots())
}

// Logs handles GET /charging-logs.
func (h *PilesHandler) Logs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.piles.ChargingLogs(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}
