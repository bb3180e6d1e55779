package watcher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/solbet/internal/domain"
	"github.com/betbot/solbet/internal/ledger"
	"github.com/betbot/solbet/pkg/logger"
)

// LedgerStatus 确认观察所需的账本查询接口
type LedgerStatus interface {
	BlockHeight(ctx context.Context) (uint64, error)
	GetSignatureStatus(ctx context.Context, signature string) (ledger.SignatureStatus, error)
	Commitment() ledger.Commitment
}

// defaultHardTimeout 轮询的兜底时长
// 检查点窗口通常在几十秒到 1-2 分钟内结束；超过兜底时长仍无结论按 Expired 处理
const defaultHardTimeout = 2 * time.Minute

// Watcher 确认观察器
// 阻塞直到交易达到要求的确认级别，或检查点有效窗口结束
type Watcher struct {
	rpc         LedgerStatus
	interval    time.Duration
	hardTimeout time.Duration
	log         *logrus.Entry
}

// New 创建观察器
func New(rpc LedgerStatus, pollInterval time.Duration) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Watcher{
		rpc:         rpc,
		interval:    pollInterval,
		hardTimeout: defaultHardTimeout,
		log:         logger.WithField("component", "watcher"),
	}
}

// AwaitFinality 等待交易确认
// 结果三态：Confirmed（达到确认级别）/ Failed（链上明确失败）/ Expired（窗口结束仍无结论）
// Expired 表示交易命运未知，调用方必须提示用户先核实再重试，绝不当作成功或静默丢弃
func (w *Watcher) AwaitFinality(ctx context.Context, submitted *domain.SubmittedTransaction, cp domain.Checkpoint) (domain.FinalityResult, error) {
	log := w.log.WithField("tx", submitted.Signature)
	deadline := time.Now().Add(w.hardTimeout)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		status, err := w.rpc.GetSignatureStatus(ctx, submitted.Signature)
		if err != nil {
			// 轮询期间的瞬时查询失败不终止观察，窗口判定会兜底
			log.Warnf("查询确认状态失败: %v", err)
		} else if status.Found {
			if status.Err != "" {
				log.WithField("detail", status.Err).Warn("交易在链上执行失败")
				return domain.FinalityResult{Status: domain.FinalityFailed, Detail: status.Err}, nil
			}
			if status.ConfirmationStatus.AtLeast(w.rpc.Commitment()) {
				log.WithField("commitment", status.ConfirmationStatus).Info("交易已确认")
				return domain.FinalityResult{Status: domain.FinalityConfirmed}, nil
			}
		}

		// 检查点窗口判定：当前高度越过截止高度且仍未确认，结果未知
		if height, err := w.rpc.BlockHeight(ctx); err == nil && height > cp.LastValidBlockHeight {
			log.WithFields(logrus.Fields{
				"height":     height,
				"last_valid": cp.LastValidBlockHeight,
			}).Warn("检查点窗口已结束，交易未确认")
			return domain.FinalityResult{Status: domain.FinalityExpired, Detail: "检查点有效窗口已结束"}, nil
		}

		if time.Now().After(deadline) {
			return domain.FinalityResult{Status: domain.FinalityExpired, Detail: "确认等待超时"}, nil
		}

		select {
		case <-ctx.Done():
			// 提交之后不暴露取消：上下文结束同样归为结果未知
			return domain.FinalityResult{Status: domain.FinalityExpired, Detail: "确认等待被中断"}, nil
		case <-ticker.C:
		}
	}
}
