package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"tandera.com/daypillar/internal/modules/ledger/dto"
	ledger "tandera.com/daypillar/internal/modules/ledger/service"
	"tandera.com/daypillar/pkg/response"
)

type LedgerHandler struct {
	service     ledger.LedgerService
	redisClient *redis.Client
	upgrader    websocket.Upgrader
}

func NewLedgerHandler(service ledger.LedgerService, redisClient *redis.Client) *LedgerHandler {
	return &LedgerHandler{
		service:     service,
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *LedgerHandler) ListEvents(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter dto.ListEventsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.ListEvents(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *LedgerHandler) Rollup(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter dto.RollupFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Rollup(c.Request.Context(), userID, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleWebSocket streams live point updates for the acting user. Payloads
// arrive on the redis channel already JSON-encoded and are forwarded as-is.
func (h *LedgerHandler) HandleWebSocket(c *gin.Context) {
	userID, err := response.GetUserIDAllowQuery(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.redisClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade websocket: %v", err)
		return
	}
	defer conn.Close()

	channel := fmt.Sprintf("user_points:%s", userID)
	pubsub := h.redisClient.Subscribe(c.Request.Context(), channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(c.Request.Context()); err != nil {
		log.Printf("Failed to subscribe to redis channel: %v", err)
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
		case msg := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Printf("Failed to write message to websocket: %v", err)
				return
			}
		case <-clientClosed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
