// ingest.go — agent 内容入队。
//
// 同一 agent 的内容块必须按到达顺序进入控制器 (行缓冲和批组
// 决策都依赖顺序); 不同 agent 之间互不阻塞。实现为每 agent 一条
// 带缓冲通道 + 一个常驻 worker。
package bus

import (
	"sync"

	"github.com/multi-agent/timeline-engine/pkg/errors"
	"github.com/multi-agent/timeline-engine/pkg/logger"
	"github.com/multi-agent/timeline-engine/pkg/util"
)

// ContentChunk 一个待处理的流式内容块。
type ContentChunk struct {
	AgentID    string `json:"agentId"`
	Content    string `json:"content"`
	RawType    string `json:"rawType"`
	ToolCallID string `json:"toolCallId,omitempty"`
}

// ChunkHandler 消费一个内容块。同一 agent 的调用串行。
type ChunkHandler func(chunk ContentChunk)

const defaultQueueSize = 256

// AgentIngest 每 agent 串行的内容入队器。
type AgentIngest struct {
	mu        sync.Mutex
	queues    map[string]chan ContentChunk
	handler   ChunkHandler
	queueSize int
	wg        sync.WaitGroup // worker 存活
	pushWG    sync.WaitGroup // 在途 Push, Close 先等它们落队
	closed    bool
}

// NewAgentIngest 创建入队器。handler 不可为 nil。
func NewAgentIngest(handler ChunkHandler) *AgentIngest {
	return NewAgentIngestSized(handler, defaultQueueSize)
}

// NewAgentIngestSized 指定每 agent 队列容量。size 非正时取缺省值。
func NewAgentIngestSized(handler ChunkHandler, size int) *AgentIngest {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &AgentIngest{
		queues:    make(map[string]chan ContentChunk),
		handler:   handler,
		queueSize: size,
	}
}

// Push 将内容块入队。首次出现的 agent 自动建队并启动 worker。
// 队列满时阻塞 (背压交给上游), 已关闭返回 ErrClosed。
func (in *AgentIngest) Push(chunk ContentChunk) error {
	if chunk.AgentID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "Ingest.Push", "empty agent id")
	}

	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return errors.Wrap(errors.ErrClosed, "Ingest.Push", "ingest already closed")
	}
	in.pushWG.Add(1)
	defer in.pushWG.Done()
	q, ok := in.queues[chunk.AgentID]
	if !ok {
		q = make(chan ContentChunk, in.queueSize)
		in.queues[chunk.AgentID] = q
		in.wg.Add(1)
		util.SafeGo(func() {
			defer in.wg.Done()
			for c := range q {
				in.handler(c)
			}
		})
		logger.Debug("agent ingest queue created", logger.FieldAgentID, chunk.AgentID)
	}
	in.mu.Unlock()

	q <- chunk
	return nil
}

// QueueCount 返回活跃队列数。
func (in *AgentIngest) QueueCount() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.queues)
}

// Close 关闭所有队列并等待 worker 排空。Close 后 Push 返回 ErrClosed。
func (in *AgentIngest) Close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	in.mu.Unlock()

	// 等在途 Push 落队后再关通道, 避免向已关闭通道发送
	in.pushWG.Wait()

	in.mu.Lock()
	for _, q := range in.queues {
		close(q)
	}
	in.mu.Unlock()

	in.wg.Wait()
}
