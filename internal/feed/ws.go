// ws.go — bus → WebSocket 桥接 handler。
package feed

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/multi-agent/timeline-engine/internal/bus"
	"github.com/multi-agent/timeline-engine/pkg/logger"
	"github.com/multi-agent/timeline-engine/pkg/util"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsMaxMessageSize = 1 << 20 // 1MB
)

// checkLocalOrigin 只接受无 Origin (非浏览器) 或本机来源。
func checkLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
}

// wsHandler 把 bus 消息转成 WebSocket JSON 流。?agent=a0 过滤同 SSE。
func (s *Server) wsHandler(c *gin.Context) {
	filter := bus.TopicAll
	if agent := c.Query("agent"); agent != "" {
		filter = bus.TopicAgentPrefix + agent
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("feed: ws upgrade failed", logger.FieldError, err)
		return
	}
	ws.SetReadLimit(wsMaxMessageSize)

	clientID := "ws-" + uuid.NewString()
	sub := s.msgBus.Subscribe(clientID, filter)
	logger.Info("feed: ws client connected",
		logger.FieldSubscriber, clientID, logger.FieldTopic, filter)

	done := make(chan struct{})

	// 读循环只为感知对端关闭
	util.SafeGo(func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})

	defer func() {
		s.msgBus.Unsubscribe(clientID)
		_ = ws.Close()
		logger.Info("feed: ws client disconnected", logger.FieldSubscriber, clientID)
	}()

	for {
		select {
		case msg, ok := <-sub.Ch:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteJSON(msg); err != nil {
				logger.Warn("feed: ws write failed",
					logger.FieldSubscriber, clientID, logger.FieldError, err)
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
