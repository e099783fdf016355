// Package websocket implements per-ride subscription rooms. Only clients
// currently subscribed to a ride receive its position updates; there is no
// global broadcast.
package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/okapiride/dispatch/internal/pkg/constants"
	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/models"
)

// Publisher is the broadcast target injected into the state machine and the
// broadcaster. It is deliberately an interface so those components never
// reach into ambient connection state.
type Publisher interface {
	Publish(rideID, event string, data interface{}) error
	HasSubscribers(rideID string) bool
}

type session struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (s *session) send(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("error marshaling message data: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(models.WSMessage{Event: event, Data: raw})
}

// Manager manages WebSocket connections grouped into per-ride rooms.
type Manager struct {
	mu       sync.RWMutex
	rooms    map[string]map[*session]struct{}
	cfg      models.JWTConfig
	upgrader websocket.Upgrader
}

// NewManager creates a new WebSocket manager
func NewManager(jwtConfig models.JWTConfig) *Manager {
	return &Manager{
		rooms: make(map[string]map[*session]struct{}),
		cfg:   jwtConfig,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleSubscribe authenticates the client, upgrades the connection and keeps
// it subscribed to the ride's room until the peer disconnects.
func (m *Manager) HandleSubscribe(c echo.Context, rideID string) error {
	claims, err := m.authenticate(c)
	if err != nil {
		return err
	}

	ws, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	s := &session{conn: ws, userID: claims.UserID}
	m.subscribe(rideID, s)
	defer m.unsubscribe(rideID, s)

	if err := s.send(constants.EventSubscribed, map[string]string{"ride_id": rideID}); err != nil {
		return err
	}

	// Drain control frames; subscribers only receive.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (m *Manager) authenticate(c echo.Context) (*models.WSClaims, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}

	claims := &models.WSClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		logger.Warn("websocket token validation failed", logrus.Fields{"error": err})
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	if m.cfg.Issuer != "" && !claims.VerifyIssuer(m.cfg.Issuer, true) {
		logger.Warn("websocket token issuer mismatch", logrus.Fields{"issuer": claims.Issuer})
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	return claims, nil
}

func (m *Manager) subscribe(rideID string, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[rideID]
	if !ok {
		room = make(map[*session]struct{})
		m.rooms[rideID] = room
	}
	room[s] = struct{}{}
}

func (m *Manager) unsubscribe(rideID string, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[rideID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(m.rooms, rideID)
		}
	}
}

// HasSubscribers reports whether anyone is listening on the ride's room.
func (m *Manager) HasSubscribers(rideID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[rideID]) > 0
}

// Publish sends an event to every subscriber of the ride's room. Send
// failures drop the message for that subscriber only.
func (m *Manager) Publish(rideID, event string, data interface{}) error {
	m.mu.RLock()
	sessions := make([]*session, 0, len(m.rooms[rideID]))
	for s := range m.rooms[rideID] {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		if err := s.send(event, data); err != nil {
			logger.Warn("websocket send failed", logrus.Fields{
				"ride_id": rideID,
				"user_id": s.userID,
				"error":   err,
			})
		}
	}
	return nil
}
