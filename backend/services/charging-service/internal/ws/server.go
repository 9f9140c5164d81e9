package ws

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "campusev/backend/libs/errors"
	"campusev/backend/libs/httpx"
)

// Server upgrades HTTP connections to pile status subscriptions.
type Server struct {
	hub          *Hub
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
	nextID       atomic.Uint64
	baseCtx      context.Context
}

// NewServer builds ws server. Subscriptions end when ctx is cancelled.
func NewServer(ctx context.Context, hub *Hub, writeTimeout time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		hub:          hub,
		logger:       logger,
		writeTimeout: writeTimeout,
		baseCtx:      ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandlePiles is the HTTP handler for /ws/piles.
func (s *Server) HandlePiles(w http.ResponseWriter, r *http.Request) {
	var locationID int64
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			httpx.WriteError(w, s.logger, apperrors.New(apperrors.CodeValidation, "location_id must be a non-negative integer"))
			return
		}
		locationID = parsed
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connection := NewConnection(s.nextID.Add(1), locationID, conn, s.writeTimeout, s.logger, s.hub.Remove)
	s.hub.Add(connection)

	go connection.Start(s.baseCtx)
	s.logger.Info("pile feed subscriber connected", zap.Int64("location_id", locationID))
}
