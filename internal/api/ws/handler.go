package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/utils"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	commandTimeout = 30 * time.Second
)

// Message is a client-to-server message
type Message struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Commands executes text commands sent over the socket
type Commands interface {
	Handle(ctx context.Context, text string) (command.Outcome, error)
}

// Handler streams bus events to WebSocket clients and accepts commands
type Handler struct {
	bus      *events.Bus
	commands Commands
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. commands may be nil, in which
// case the stream is read-only.
func NewHandler(bus *events.Bus, commands Commands, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bus:      bus,
		commands: commands,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboards and the phone app connect from anywhere on the LAN
			},
		},
	}
}

// WithMetrics enables connection and message metrics
func (h *Handler) WithMetrics(m *monitoring.Metrics) *Handler {
	h.metrics = m
	return h
}

// client is one connected socket. Writes are serialised by mu since
// gorilla connections allow a single concurrent writer.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	cl := &client{id: uuid.NewString(), conn: conn}
	logger := h.logger.With(zap.String("client_id", cl.id))

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	sub, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	logger.Info("Stream client connected", zap.String("remote", c.ClientIP()))
	defer logger.Info("Stream client disconnected")

	if err := h.send(cl, map[string]any{
		"type":      "system",
		"client_id": cl.id,
		"message":   "Connected to SolarSense tracker",
		"timestamp": time.Now().Unix(),
	}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(c.Request.Context(), cl, logger)
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case evt, ok := <-sub:
			if !ok {
				_ = h.control(cl, websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := h.send(cl, map[string]any{"type": "event", "event": evt}); err != nil {
				logger.Debug("Stream write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := h.control(cl, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, cl *client, logger *zap.Logger) {
	cl.conn.SetReadLimit(utils.MaxCommandSize * 2)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendError(cl, "invalid message")
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			h.send(cl, map[string]any{"type": "pong", "timestamp": time.Now().Unix()})
		case "command":
			h.handleCommand(ctx, cl, msg)
		default:
			h.sendError(cl, "unknown message type")
		}
	}
}

func (h *Handler) handleCommand(ctx context.Context, cl *client, msg Message) {
	if h.commands == nil {
		h.sendError(cl, "commands are not accepted on this stream")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := h.commands.Handle(ctx, msg.Text)
	if err != nil {
		h.sendError(cl, err.Error())
		return
	}
	h.send(cl, map[string]any{
		"type":      "command_result",
		"outcome":   out,
		"timestamp": time.Now().Unix(),
	})
}

func (h *Handler) send(cl *client, data any) error {
	payload, err := sonic.Marshal(data)
	if err != nil {
		return err
	}
	if t, ok := data.(map[string]any); ok {
		if typ, ok := t["type"].(string); ok {
			h.metrics.RecordWSMessage("out", typ)
		}
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *Handler) control(cl *client, messageType int, data []byte) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

func (h *Handler) sendError(cl *client, msg string) error {
	return h.send(cl, map[string]any{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
