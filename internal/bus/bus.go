// Package bus 提供进程内消息总线与 agent 内容入队。
//
// 两个角色:
//   - MessageBus: topic pub/sub fan-out → 多订阅者 (SSE / WebSocket / 存储桥接)
//   - AgentIngest: 每 agent 一条串行队列, 保证同一 agent 的内容块按到达顺序处理
//
// 桥接:
//   - feed/sse.go — bus 事件自动转发到 SSE 流
//   - feed/sink.go — 时间线事件发布到 bus 并落库
package bus

import (
	"encoding/json"
	"sync"
	"time"
)

// ========================================
// 消息类型
// ========================================

// Message 总线消息。
type Message struct {
	Topic     string          `json:"topic"` // agent.a0.timeline / agent.a0.ribbon / system.health
	AgentID   string          `json:"agentId,omitempty"`
	Type      string          `json:"type"`    // 消息类型 (timeline.text / timeline.tool / round.changed ...)
	Payload   json.RawMessage `json:"payload"` // 具体数据
	Timestamp time.Time       `json:"timestamp"`
	Seq       int64           `json:"seq"` // 全局序列号
}

// 消息类型常量。
const (
	// --- 时间线单元 ---

	// MsgTimelineText 行缓冲文本单元。
	MsgTimelineText = "timeline.text"
	// MsgTimelineTool 工具卡片新增。
	MsgTimelineTool = "timeline.tool"
	// MsgTimelineToolUpdate 工具卡片状态更新。
	MsgTimelineToolUpdate = "timeline.tool_update"
	// MsgTimelineBatch 批组创建 (pending 卡片转批)。
	MsgTimelineBatch = "timeline.batch"
	// MsgTimelineBatchAdd 工具加入已有批组。
	MsgTimelineBatchAdd = "timeline.batch_add"
	// MsgTimelineSeparator 回合分隔条。
	MsgTimelineSeparator = "timeline.separator"

	// --- 回合 / ribbon ---

	// MsgRoundChanged 回合切换。
	MsgRoundChanged = "round.changed"
	// MsgRibbonStatus 状态徽标变化。
	MsgRibbonStatus = "ribbon.status"

	// --- 计划 ---

	// MsgPlanUpdate 任务计划增量。
	MsgPlanUpdate = "plan.update"

	// --- 系统 ---

	// MsgError 异常消息。
	MsgError = "error"
	// MsgHealth 健康状态。
	MsgHealth = "system.health"
)

// Topic 模式常量。
const (
	// TopicAgentPrefix Agent 消息前缀: agent.{id}.{subtopic}。
	TopicAgentPrefix = "agent."
	// TopicSystem 系统消息。
	TopicSystem = "system"
	// TopicAll 广播 (所有订阅者收到)。
	TopicAll = "*"
)

// AgentTopic 拼接 agent 子 topic: AgentTopic("a0", "timeline") → "agent.a0.timeline"。
func AgentTopic(agentID, subtopic string) string {
	return TopicAgentPrefix + agentID + "." + subtopic
}

// ========================================
// Subscriber
// ========================================

// Subscriber 订阅者。
type Subscriber struct {
	ID     string       // 唯一标识
	Filter string       // topic 前缀过滤 ("agent.a0" / "*" / "system")
	Ch     chan Message // 消息通道
}

// ========================================
// MessageBus — topic pub/sub
// ========================================

// MessageBus 进程内消息总线。
//
// 支持 topic 前缀匹配和广播:
//   - 订阅 "agent.a0" → 收到 agent.a0.timeline, agent.a0.ribbon 等
//   - 订阅 "*" → 收到所有消息
type MessageBus struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber // key = subscriber ID
	seq         int64
	onPublish   func(Message) // 可选: 每条消息的全局回调 (用于桥接存储/日志)
}

// NewMessageBus 创建消息总线。
func NewMessageBus() *MessageBus {
	return &MessageBus{
		subscribers: make(map[string]*Subscriber),
	}
}

// SetOnPublish 设置全局发布回调 (用于桥接到存储层)。
func (b *MessageBus) SetOnPublish(fn func(Message)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onPublish = fn
}

// Publish 发布消息到匹配的订阅者, 返回本条消息分配到的 seq。
//
// seq 递增和 fan-out 在同一把锁下执行, 保证消息到达顺序与 seq 一致。
func (b *MessageBus) Publish(msg Message) int64 {
	b.mu.Lock()
	b.seq++
	msg.Seq = b.seq
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	onPub := b.onPublish

	for _, sub := range b.subscribers {
		if matchTopic(sub.Filter, msg.Topic) {
			select {
			case sub.Ch <- msg:
			default:
				// 通道满, 丢弃 (避免阻塞发布者)
			}
		}
	}
	b.mu.Unlock()

	// 全局回调在锁外执行 (回调可能耗时, 避免持锁太久)
	if onPub != nil {
		onPub(msg)
	}
	return msg.Seq
}

// Subscribe 订阅消息。filter 为 topic 前缀 ("agent.a0" / "*" / "system")。
func (b *MessageBus) Subscribe(id, filter string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscriber{
		ID:     id,
		Filter: filter,
		Ch:     make(chan Message, 64),
	}
	b.subscribers[id] = sub
	return sub
}

// Unsubscribe 取消订阅。
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Ch)
		delete(b.subscribers, id)
	}
}

// SubscriberCount 返回当前订阅者数量。
func (b *MessageBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Seq 返回当前序列号。
func (b *MessageBus) Seq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// ========================================
// Topic 匹配
// ========================================

// matchTopic 检查 topic 是否匹配 filter。
//
// 规则:
//   - filter "*" 匹配所有 topic
//   - filter "agent.a0" 匹配 "agent.a0", "agent.a0.timeline", "agent.a0.xxx"
//   - filter "system" 匹配 "system", "system.health"
func matchTopic(filter, topic string) bool {
	if filter == TopicAll {
		return true
	}
	if topic == filter {
		return true
	}
	if len(topic) > len(filter) && topic[:len(filter)] == filter && topic[len(filter)] == '.' {
		return true
	}
	return false
}
