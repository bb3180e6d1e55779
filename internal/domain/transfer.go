package domain

import "time"

// Checkpoint 最近的网络检查点
// 交易绑定到检查点后只在有效窗口内可被确认
type Checkpoint struct {
	Blockhash            string // 检查点哈希（base58）
	LastValidBlockHeight uint64 // 有效窗口的截止区块高度
}

// UnsignedTransfer 未签名的转账指令
// 仅在单次提交尝试期间由编排器持有，签名后即丢弃
type UnsignedTransfer struct {
	Sender      string     // 付款方地址
	Recipient   string     // 收款方（金库）地址
	AmountMinor uint64     // 最小单位金额（主单位金额向下取整换算）
	Checkpoint  Checkpoint // 绑定的检查点
}

// SubmittedTransaction 已提交的链上交易
// 正常流程下每个 BetRequest 至多产生一笔（结果不明确时不自动重提）
type SubmittedTransaction struct {
	Signature   string     // 交易签名 / ID
	Checkpoint  Checkpoint // 绑定的检查点
	SubmittedAt time.Time  // 提交时间
}

// FinalityStatus 确认结果分类
type FinalityStatus string

const (
	FinalityConfirmed FinalityStatus = "confirmed" // 已达到要求的确认级别
	FinalityFailed    FinalityStatus = "failed"    // 链上明确失败
	FinalityExpired   FinalityStatus = "expired"   // 有效窗口结束仍未确认，结果未知
)

// FinalityResult 确认观察结果
type FinalityResult struct {
	Status FinalityStatus // 结果分类
	Detail string         // 链上错误信息（Failed 时有值）
}
