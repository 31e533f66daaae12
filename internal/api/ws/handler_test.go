package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/SolarSense/backend/internal/domain/command"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SolarSense/backend/internal/shared/events"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommands struct{}

func (stubCommands) Handle(_ context.Context, text string) (command.Outcome, error) {
	if text == "dance" {
		return command.Outcome{}, command.ErrUnknownCommand
	}
	return command.Outcome{Message: "Panel tilted up to 105°"}, nil
}

func newStream(t *testing.T, commands Commands) (*events.Bus, *monitoring.Metrics, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := events.NewBus(8)
	metrics := monitoring.NewMetrics()
	h := NewHandler(bus, commands, nil).WithMetrics(metrics)

	router := gin.New()
	router.GET("/stream", h.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return bus, metrics, conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWelcomeAndEvents(t *testing.T) {
	bus, metrics, conn := newStream(t, nil)

	welcome := read(t, conn)
	assert.Equal(t, "system", welcome["type"])
	assert.NotEmpty(t, welcome["client_id"])

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))

	bus.Publish(events.ServoMoved, map[string]any{"servo": "panel", "angle": 120})

	msg := read(t, conn)
	assert.Equal(t, "event", msg["type"])
	evt := msg["event"].(map[string]any)
	assert.Equal(t, "servo.moved", evt["type"])
	assert.True(t, strings.HasPrefix(evt["id"].(string), "evt_"))
	assert.EqualValues(t, 120, evt["data"].(map[string]any)["angle"])
}

func TestPingPong(t *testing.T) {
	_, metrics, conn := newStream(t, nil)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	assert.Equal(t, "pong", read(t, conn)["type"])

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.WSMessages.WithLabelValues("in", "ping")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCommands(t *testing.T) {
	_, _, conn := newStream(t, stubCommands{})
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: "command", Text: "panel up"}))
	msg := read(t, conn)
	require.Equal(t, "command_result", msg["type"])
	assert.Equal(t, "Panel tilted up to 105°", msg["outcome"].(map[string]any)["message"])

	require.NoError(t, conn.WriteJSON(Message{Type: "command", Text: "dance"}))
	msg = read(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["message"], "unrecognized command")
}

func TestReadOnlyStreamRejectsCommands(t *testing.T) {
	_, _, conn := newStream(t, nil)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: "command", Text: "up"}))
	msg := read(t, conn)
	assert.Equal(t, "error", msg["type"])
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	_, _, conn := newStream(t, nil)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: "generate_ui"}))
	assert.Equal(t, "unknown message type", read(t, conn)["message"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "invalid message", read(t, conn)["message"])
}

func TestBusCloseEndsStream(t *testing.T) {
	bus, metrics, conn := newStream(t, nil)
	read(t, conn)
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	bus.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.WSConnections) == 0
	}, time.Second, 10*time.Millisecond)
}
