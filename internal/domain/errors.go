package domain

import "fmt"

// FailureKind 下注流程失败分类
// 每个外部调用失败在各自组件边界被捕获，映射为且仅映射为其中一种
type FailureKind string

const (
	KindInvalidInput            FailureKind = "invalid_input"             // 本地校验失败，未发起任何网络调用
	KindNoSigningCapability     FailureKind = "no_signing_capability"     // 钱包未连接
	KindOracleUnavailable       FailureKind = "oracle_unavailable"        // 价格源不可用
	KindOracleMalformedResponse FailureKind = "oracle_malformed_response" // 价格源返回格式异常
	KindInvalidRecipientConfig  FailureKind = "invalid_recipient_config"  // 金库地址配置错误
	KindSigningRejected         FailureKind = "signing_rejected"          // 用户取消签名
	KindSubmissionFailed        FailureKind = "submission_failed"         // 节点拒绝交易
	KindExpired                 FailureKind = "expired"                   // 检查点有效窗口内未确认，结果未知
	KindLedgerFailed            FailureKind = "ledger_failed"             // 链上明确失败
	KindPersistenceError        FailureKind = "persistence_error"         // 资金已转移但记录写入失败
)

// userMessages 面向用户的固定提示文案
var userMessages = map[FailureKind]string{
	KindInvalidInput:            "请输入有效的金额和合约周期",
	KindNoSigningCapability:     "请先连接钱包再下单",
	KindOracleUnavailable:       "暂时无法获取当前价格，请稍后重试",
	KindOracleMalformedResponse: "暂时无法获取当前价格，请稍后重试",
	KindInvalidRecipientConfig:  "金库地址配置异常，已阻止本次转账，请联系管理员",
	KindSigningRejected:         "已取消签名，本次下单未提交",
	KindSubmissionFailed:        "交易被节点拒绝，请检查余额后重试",
	KindExpired:                 "交易确认超时，结果未知：请先核实链上状态，再决定是否重新下单",
	KindLedgerFailed:            "交易在链上执行失败",
	KindPersistenceError:        "转账已成功，但仓位记录写入失败：请勿重复下单，联系客服核对仓位",
}

// UserMessage 返回失败分类对应的用户提示
func UserMessage(kind FailureKind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return "下单失败，请稍后重试"
}

// FlowError 下注流程错误
// 携带唯一的失败分类与原始细节，向上传播到编排器后整体终止状态机
type FlowError struct {
	Kind   FailureKind // 失败分类
	Detail string      // 原始细节（日志 / 排障用）
	Err    error       // 底层错误（可选）
}

// NewFlowError 创建流程错误
func NewFlowError(kind FailureKind, detail string, err error) *FlowError {
	return &FlowError{Kind: kind, Detail: detail, Err: err}
}

func (e *FlowError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// UserMessage 返回该错误面向用户的提示文案
func (e *FlowError) UserMessage() string {
	return UserMessage(e.Kind)
}

// AsFlowError 从错误链中提取 FlowError
func AsFlowError(err error) (*FlowError, bool) {
	for err != nil {
		if fe, ok := err.(*FlowError); ok {
			return fe, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// KindOf 提取错误的失败分类
func KindOf(err error) (FailureKind, bool) {
	if fe, ok := AsFlowError(err); ok {
		return fe.Kind, true
	}
	return "", false
}
