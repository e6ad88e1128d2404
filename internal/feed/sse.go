// sse.go — bus → SSE 桥接 handler。
package feed

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/multi-agent/timeline-engine/internal/bus"
	"github.com/multi-agent/timeline-engine/pkg/logger"
)

// sseHandler 把 bus 消息转成 SSE 流。?agent=a0 只订阅该 agent, 缺省订阅全部。
func (s *Server) sseHandler(c *gin.Context) {
	filter := bus.TopicAll
	if agent := c.Query("agent"); agent != "" {
		filter = bus.TopicAgentPrefix + agent
	}

	clientID := "sse-" + uuid.NewString()
	sub := s.msgBus.Subscribe(clientID, filter)
	defer func() {
		s.msgBus.Unsubscribe(clientID)
		logger.Info("feed: SSE client disconnected", logger.FieldSubscriber, clientID)
	}()

	logger.Info("feed: SSE client connected",
		logger.FieldSubscriber, clientID, logger.FieldTopic, filter)

	heartbeat := time.Duration(s.cfg.SSEHeartbeatSec) * time.Second

	c.Stream(func(w io.Writer) bool {
		// 复用 timer 避免每次循环创建新定时器 (GC 压力)
		keepalive := time.NewTimer(heartbeat)
		defer keepalive.Stop()

		for {
			select {
			case msg, ok := <-sub.Ch:
				if !ok {
					return false
				}
				c.SSEvent(msg.Type, msg)
				if !keepalive.Stop() {
					select {
					case <-keepalive.C:
					default:
					}
				}
				keepalive.Reset(heartbeat)
				return true
			case <-keepalive.C:
				c.SSEvent("ping", "keepalive")
				keepalive.Reset(heartbeat)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		}
	})
}
