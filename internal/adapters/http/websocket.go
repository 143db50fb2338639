package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/walkies/internal/adapters/auth"
	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/usecases"
	"github.com/samirrijal/walkies/internal/pkg/metrics"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	claimsLocal    = "walkies.claims"
)

// WebSocketAuth rejects non-upgrade requests and authenticates the caller
// from the Authorization header or, for browsers, the access_token query
// parameter.
func WebSocketAuth(cfg auth.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("access_token")
		}
		claims, err := auth.Parse(token, cfg)
		if err != nil {
			return errUnauthorized(c, "invalid bearer token")
		}
		c.Locals(claimsLocal, claims)
		return c.Next()
	}
}

// ActiveWalkSocket streams the caller's active walk: the current value on
// connect, then one message per change.
func ActiveWalkSocket(deps *Dependencies) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		relay(conn, "active", deps.Walks.ObserveActiveSession, func(v usecases.ActiveSessionView) any {
			return fiber.Map{"session": toWalkResponse(v.Session)}
		})
	}
}

// WalkHistorySocket streams the caller's resolved walks on every change.
func WalkHistorySocket(deps *Dependencies) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		relay(conn, "history", deps.Walks.ObserveHistory, func(v []domain.WalkSession) any {
			return fiber.Map{"history": toWalkResponses(v)}
		})
	}
}

// relay pipes an observed view to the client until either side goes away.
// Client messages are read and discarded so close frames are noticed.
func relay[T any](
	conn *websocket.Conn,
	view string,
	observe func(context.Context, string) (<-chan T, error),
	render func(T) any,
) {
	defer conn.Close()

	claims, ok := conn.Locals(claimsLocal).(*auth.Claims)
	if !ok {
		return
	}
	log := slog.Default().With("view", view, "user_id", claims.Subject, "remote", conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := observe(ctx, claims.Subject)
	if err != nil {
		log.Error("ws observe failed", "error", err)
		_ = conn.WriteJSON(fiber.Map{"error": "unavailable"})
		return
	}

	metrics.ActiveWebSockets.Inc()
	defer metrics.ActiveWebSockets.Dec()
	log.Info("ws client connected")
	defer log.Info("ws client disconnected")

	var mu sync.Mutex
	write := func(messageType int, data []byte) error {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteMessage(messageType, data)
	}

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(render(v))
			if err != nil {
				log.Error("ws encode", "error", err)
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
