package controllers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/services"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRealtimeServer(t *testing.T) (*httptest.Server, *services.Hub, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "dev", JWTSecret: "test-jwt-secret"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := services.NewHub(logger)

	router := gin.New()
	router.GET("/ws", NewRealtimeController(hub, cfg, logger).Connect)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub, cfg
}

func dialWS(t *testing.T, server *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	if token != "" {
		wsURL += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(wsURL, nil)
}

func TestRealtimeConnect_RequiresToken(t *testing.T) {
	server, _, _ := newRealtimeServer(t)

	_, resp, err := dialWS(t, server, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRealtimeConnect_SubscribeAndReceive(t *testing.T) {
	server, hub, cfg := newRealtimeServer(t)

	user := utils.TokenUser{Username: "ann", Email: "ann@x.edu", UserID: 7, Role: models.RoleStudent}
	token, err := utils.CreateAccessToken([]byte(cfg.JWTSecret), user, time.Minute)
	require.NoError(t, err)

	conn, _, err := dialWS(t, server, token)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(gin.H{"event": "subscribe", "userId": 7}))

	// wait for the hub registration to land before notifying
	require.Eventually(t, func() bool {
		return hub.Notify(7, "order.fulfilled", gin.H{"id": 1})
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var event struct {
		Event string `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "order.fulfilled", event.Event)
}

func TestRealtimeConnect_RejectsMismatchedSubscribe(t *testing.T) {
	server, hub, cfg := newRealtimeServer(t)

	user := utils.TokenUser{Username: "ann", Email: "ann@x.edu", UserID: 7, Role: models.RoleStudent}
	token, err := utils.CreateAccessToken([]byte(cfg.JWTSecret), user, time.Minute)
	require.NoError(t, err)

	conn, _, err := dialWS(t, server, token)
	require.NoError(t, err)
	defer conn.Close()

	// claiming another user's id closes the connection unregistered
	require.NoError(t, conn.WriteJSON(gin.H{"event": "subscribe", "userId": 8}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.False(t, hub.Notify(7, "ping", nil))
	assert.False(t, hub.Notify(8, "ping", nil))
}
