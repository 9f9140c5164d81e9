package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"campusev/backend/services/charging-service/internal/models"
)

// EventVersion is bumped on breaking payload changes.
const EventVersion = 1

// Envelope wraps every event written to the session topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// SessionPayload is the body of the Session* events.
type SessionPayload struct {
	SessionID     int64      `json:"session_id"`
	UserID        int64      `json:"user_id"`
	PileID        int64      `json:"pile_id"`
	LocationID    int64      `json:"location_id"`
	VehicleID     int64      `json:"vehicle_id"`
	Status        string     `json:"status"`
	PileStatus    string     `json:"pile_status"`
	ReservedFrom  time.Time  `json:"reserved_from"`
	ReservedUntil time.Time  `json:"reserved_until"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	EnergyKWh     *float64   `json:"energy_kwh,omitempty"`
	FeeAmount     *float64   `json:"fee_amount,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
}

// NewEnvelope builds the envelope for a session event.
func NewEnvelope(producer string, event models.SessionEvent) (Envelope, error) {
	payload := SessionPayload{
		PileID:     event.PileID,
		LocationID: event.LocationID,
		PileStatus: string(event.PileStatus),
	}
	correlation := ""
	if s := event.Session; s != nil {
		payload.SessionID = s.ID
		payload.UserID = s.UserID
		payload.VehicleID = s.VehicleID
		payload.Status = string(s.Status)
		payload.ReservedFrom = s.ReservedFrom.UTC()
		payload.ReservedUntil = s.ReservedUntil.UTC()
		payload.StartedAt = s.StartedAt
		payload.EndedAt = s.EndedAt
		payload.EnergyKWh = s.EnergyKWh
		payload.FeeAmount = s.FeeAmount
		payload.CancelReason = s.CancelReason
		correlation = strconv.FormatInt(s.ID, 10)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	occurred := event.At
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type),
		EventVersion:  EventVersion,
		OccurredAt:    occurred,
		Producer:      producer,
		CorrelationID: correlation,
		Payload:       raw,
	}, nil
}
