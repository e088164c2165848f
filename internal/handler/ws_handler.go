package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/events"
	"github.com/stemsi/exam-paper/internal/response"
	ws "github.com/stemsi/exam-paper/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.Origins().
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams exam and question change events to browsers.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. A nil rdb disables the feed.
func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ChangeFeed godoc
// WS /ws/events
// Upgrades to WebSocket and forwards every published change event.
func (h *WSHandler) ChangeFeed(c *gin.Context) {
	if h.rdb == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrFeedUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	wsLog := h.log.With().Str("remote", c.ClientIP()).Logger()

	sub, err := events.Subscribe(ctx, h.rdb)
	if err != nil {
		wsLog.Error().Err(err).Msg("Change feed subscription failed")
		ws.WriteError(conn, "change feed unavailable")
		return
	}
	defer sub.Close()

	if err := ws.WriteTyped(conn, ws.ReadyResponse{Event: ws.EventReady}); err != nil {
		return
	}
	wsLog.Debug().Msg("Feed client connected")

	// gorilla/websocket allows one reader and one writer: the read loop only
	// signals, every write happens below.
	pongs := make(chan struct{}, 1)
	go h.readLoop(conn, cancel, pongs, wsLog)

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()
	changes := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Feed client disconnected")
			return
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		case <-pongs:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case msg, ok := <-changes:
			if !ok {
				return
			}
			e, err := events.Decode(msg.Payload)
			if err != nil {
				wsLog.Warn().Err(err).Msg("Dropping malformed change event")
				continue
			}
			if err := ws.WriteTyped(conn, ws.ChangeResponse{Event: ws.EventChange, Change: e}); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client messages until the connection fails, then cancels
// the feed.
func (h *WSHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc, pongs chan<- struct{}, wsLog zerolog.Logger) {
	defer cancel()
	ws.KeepAlive(conn)

	for {
		action, err := ws.ReadAction(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		switch action {
		case ws.ActionPing:
			select {
			case pongs <- struct{}{}:
			default:
			}
		default:
			wsLog.Debug().Str("action", string(action)).Msg("Ignoring client message")
		}
	}
}
