package server

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/betbot/solbet/internal/betflow"
)

// ErrClientBusy 同一表单实例已有进行中的下注
var ErrClientBusy = errors.New("client already has a bet in flight")

// ErrFlowNotFound 未知的下注 ID
var ErrFlowNotFound = errors.New("bet not found")

// flowEntry 单次下注的状态历史与订阅者
type flowEntry struct {
	mu          sync.Mutex
	betID       string
	clientID    string
	statuses    []betflow.Status
	result      *betflow.Result
	subscribers map[chan betflow.Status]struct{}
}

// publish 追加一次状态转移并通知所有订阅者
func (e *flowEntry) publish(s betflow.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statuses = append(e.statuses, s)
	for ch := range e.subscribers {
		select {
		case ch <- s:
		default:
			// 订阅者消费过慢时丢弃，WS 端依赖 history 补齐
		}
	}
}

// finish 记录最终结果并关闭所有订阅通道
func (e *flowEntry) finish(r *betflow.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.result = r
	for ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = map[chan betflow.Status]struct{}{}
}

// snapshot 返回历史状态与结果的拷贝
func (e *flowEntry) snapshot() ([]betflow.Status, *betflow.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := make([]betflow.Status, len(e.statuses))
	copy(history, e.statuses)
	return history, e.result
}

// subscribe 订阅后续状态；返回已发生的历史与取消函数
func (e *flowEntry) subscribe() ([]betflow.Status, chan betflow.Status, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := make([]betflow.Status, len(e.statuses))
	copy(history, e.statuses)

	if e.result != nil {
		// 已终止：不再有后续状态
		return history, nil, func() {}
	}

	ch := make(chan betflow.Status, 16)
	e.subscribers[ch] = struct{}{}
	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
	}
	return history, ch, cancel
}

// terminal 是否已终止
func (e *flowEntry) terminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result != nil
}

// FlowRegistry 进行中与已完成下注的注册表
// 按表单实例（client ID）限制至多一个进行中的编排
type FlowRegistry struct {
	mu       sync.RWMutex
	flows    map[string]*flowEntry // betID -> entry
	byClient map[string]string     // clientID -> 进行中的 betID
}

// NewFlowRegistry 创建注册表
func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{
		flows:    make(map[string]*flowEntry),
		byClient: make(map[string]string),
	}
}

// begin 登记一次新下注；同一 client 已有进行中下注时拒绝
func (r *FlowRegistry) begin(betID, clientID string) (*flowEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if activeID, ok := r.byClient[clientID]; ok {
		if entry, exists := r.flows[activeID]; exists && !entry.terminal() {
			return nil, ErrClientBusy
		}
	}

	entry := &flowEntry{
		betID:       betID,
		clientID:    clientID,
		subscribers: map[chan betflow.Status]struct{}{},
	}
	r.flows[betID] = entry
	r.byClient[clientID] = betID
	return entry, nil
}

// get 按下注 ID 查询
func (r *FlowRegistry) get(betID string) (*flowEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.flows[betID]
	return entry, ok
}
