package signal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Skannik/vid222/internal/app/orch"
	"github.com/Skannik/vid222/internal/auth"
	"github.com/Skannik/vid222/internal/core"
)

const sendBufferSize = 64

type Controller struct {
	Orch       *orch.Orchestrator
	Verifier   *auth.Verifier
	Limiter    *EventRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewController(o *orch.Orchestrator, v *auth.Verifier, l *EventRateLimiter, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{Orch: o, Verifier: v, Limiter: l, ReadLimit: readLimit, PingPeriod: pingPeriod}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS authenticates the handshake, upgrades, and starts the pump
// pair. A missing or invalid bearer credential rejects the connection
// before any event is processed.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	token := bearerToken(c.Request)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, err := ctl.Verifier.Verify(token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("handshake rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cid := core.ConnID(uuid.NewString())
	conn := &wsConn{conn: ws, send: make(chan core.Frame, sendBufferSize)}
	ctx, cancel := context.WithCancel(ctx)

	if err := ctl.Orch.Connect(cid, conn, id); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("connect")
		// drop the half-registered directory entry; on ErrAlreadyBound the
		// entry belongs to an earlier connection and must survive
		if !errors.Is(err, core.ErrAlreadyBound) {
			ctl.Orch.Terminate(cid)
		}
		conn.Close()
		cancel()
		return
	}
	log.Info().Str("module", "signal").Str("cid", string(cid)).
		Str("user", string(id.UserID)).Str("username", id.Username).Msg("new WS connection")

	go ctl.writePump(ctx, cid, conn)
	go ctl.readPump(ctx, cid, id, conn, cancel)
}

// bearerToken pulls the credential from the Authorization header, or the
// token query parameter for browser WebSocket clients that cannot set
// headers on the upgrade request.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
