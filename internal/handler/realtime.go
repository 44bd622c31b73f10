package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/iliyamo/restaurant-table-reservation/internal/fanout"
	"github.com/iliyamo/restaurant-table-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-table-reservation/internal/utils"
)

// RealtimeHandler upgrades clients to a websocket and pumps hub messages
// to them.  A client's rooms are fixed at connect time from its token
// claims; there is no subscribe protocol on the socket itself.
type RealtimeHandler struct {
	Hub       *fanout.Hub
	JWTSecret string
	Log       zerolog.Logger
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(hub *fanout.Hub, jwtSecret string, log zerolog.Logger) *RealtimeHandler {
	if hub == nil {
		panic("nil hub passed to NewRealtimeHandler")
	}
	return &RealtimeHandler{Hub: hub, JWTSecret: jwtSecret, Log: log.With().Str("component", "realtime").Logger()}
}

// Serve handles GET /v1/realtime?token=…  Browsers cannot set an
// Authorization header on a websocket upgrade, so the access token travels
// as a query parameter instead.
func (h *RealtimeHandler) Serve(c echo.Context) error {
	raw := c.QueryParam("token")
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}
	ident, err := utils.ParseAccessToken(h.JWTSecret, raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	ws := websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()

		sub := h.Hub.Subscribe(roomsFor(ident))
		defer h.Hub.Unsubscribe(sub)
		h.Log.Info().Uint64("user_id", ident.UserID).Str("role", ident.Role).Msg("realtime client connected")

		// Reader goroutine: clients send nothing meaningful, but the read
		// unblocks with an error when the peer goes away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			var discard string
			for {
				if err := websocket.Message.Receive(conn, &discard); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case msg, ok := <-sub.C():
				if !ok {
					return
				}
				if err := websocket.Message.Send(conn, string(msg)); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	})
	ws.ServeHTTP(c.Response(), c.Request())
	return nil
}

// roomsFor derives a client's rooms from its identity.  Everyone hears
// about their own reservations; staff additionally follow their branch,
// admins the global feed and delivery staff their personal queue.
func roomsFor(ident utils.Identity) []string {
	rooms := []string{fanout.RoomUser(ident.UserID)}
	switch ident.Role {
	case middleware.RoleStaff:
		if ident.BranchID != 0 {
			rooms = append(rooms, fanout.RoomBranch(ident.BranchID))
		}
	case middleware.RoleAdmin:
		rooms = append(rooms, fanout.RoomAdmin)
	case middleware.RoleDelivery:
		rooms = append(rooms, fanout.RoomDelivery(ident.UserID))
	}
	return rooms
}
