package betflow

import (
	"time"

	"github.com/betbot/solbet/internal/domain"
)

// State 下注编排状态机的状态
// Failed 可由除 Succeeded 外的任意非终态进入
type State string

const (
	StateIdle                 State = "idle"
	StateValidatingInput      State = "validating_input"
	StateFetchingPrice        State = "fetching_price"
	StateBuildingTransaction  State = "building_transaction"
	StateAwaitingSignature    State = "awaiting_signature"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StatePersisting           State = "persisting"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

// Terminal 是否为终态
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Status 状态流中的一次转移
// UI 依据它展示“获取价格中…”“等待确认中…”等进度，并在非终态时禁用提交
type Status struct {
	State  State              `json:"state"`
	Kind   domain.FailureKind `json:"kind,omitempty"`   // Failed 时的失败分类
	Detail string             `json:"detail,omitempty"` // 细节（日志 / 排障用）
	At     time.Time          `json:"at"`
}

// StatusFn 状态流回调；在编排 goroutine 内同步调用
type StatusFn func(Status)

// Result 一次下注编排的最终结果
type Result struct {
	BetID       string                    `json:"bet_id"`
	State       State                     `json:"state"`
	Position    *domain.ConfirmedPosition `json:"position,omitempty"`
	RecordID    string                    `json:"record_id,omitempty"`
	Kind        domain.FailureKind        `json:"kind,omitempty"`
	Detail      string                    `json:"detail,omitempty"`
	UserMessage string                    `json:"user_message,omitempty"`
}

// Succeeded 是否成功
func (r *Result) Succeeded() bool {
	return r.State == StateSucceeded
}
