package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"anoa.com/volunteergoals/internal/entity"
	activity "anoa.com/volunteergoals/internal/modules/activity/service"
	"anoa.com/volunteergoals/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// StreamHandler pushes newly recorded activity to websocket clients as it is
// published on redis.
type StreamHandler struct {
	redisClient *redis.Client
	upgrader    websocket.Upgrader
}

func NewStreamHandler(redisClient *redis.Client, allowedOrigins []string) *StreamHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimSpace(o)] = true
	}

	return &StreamHandler{
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// Visible reports whether viewer may receive entry. Admins see everything,
// volunteers only what they did themselves.
func Visible(viewer entity.Principal, entry *entity.ActivityLog) bool {
	if viewer.IsAdmin() {
		return true
	}
	return entry.UserID != nil && *entry.UserID == viewer.UserID
}

func (h *StreamHandler) HandleWebSocket(c *gin.Context) {
	viewer, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.redisClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live activity requires redis"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, activity.Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("Failed to subscribe to %s: %v", activity.Channel, err)
		return
	}
	ch := pubsub.Channel()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var entry entity.ActivityLog
			if err := json.Unmarshal([]byte(msg.Payload), &entry); err != nil {
				log.Printf("Dropping malformed activity payload: %v", err)
				continue
			}
			if !Visible(viewer, &entry) {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("Failed to write message to websocket: %v", err)
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
