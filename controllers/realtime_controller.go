package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/config"
	"github.com/TuanDao2002/rmit-what-to-eat/services"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeController struct {
	hub    *services.Hub
	cfg    *config.Config
	logger *slog.Logger
}

func NewRealtimeController(hub *services.Hub, cfg *config.Config, logger *slog.Logger) *RealtimeController {
	return &RealtimeController{hub: hub, cfg: cfg, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // CORS is enforced on the REST surface
}

type subscribeFrame struct {
	Event  string `json:"event"`
	UserID uint   `json:"userId"`
}

// Connect authenticates the handshake with the same access token as REST
// (cookie, or ?token= for non-browser clients), waits for the subscribe
// frame and registers the connection under the authenticated user id.
func (rc *RealtimeController) Connect(c *gin.Context) {
	tokenString, err := c.Cookie(utils.AccessTokenCookie)
	if err != nil || tokenString == "" {
		tokenString = c.Query("token")
	}
	user, err := utils.ParseAccessToken([]byte(rc.cfg.JWTSecret), tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Authentication Invalid"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var frame subscribeFrame
	if err := conn.ReadJSON(&frame); err != nil || frame.Event != "subscribe" || frame.UserID != user.UserID {
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	rc.hub.Subscribe(user.UserID, conn)

	// keep connections alive through proxies
	go func() {
		t := time.NewTicker(25 * time.Second)
		defer t.Stop()
		for range t.C {
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				rc.hub.Unsubscribe(user.UserID, conn)
				return
			}
		}
	}()

	// read loop ends on client close or error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			rc.hub.Unsubscribe(user.UserID, conn)
			return
		}
	}
}
