package betflow

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/solbet/internal/domain"
	"github.com/betbot/solbet/internal/gateway"
	"github.com/betbot/solbet/internal/oracle"
	"github.com/betbot/solbet/internal/recorder"
	"github.com/betbot/solbet/internal/wallet"
	"github.com/betbot/solbet/pkg/logger"
)

// ErrInFlight 同一编排器实例已有进行中的下注
var ErrInFlight = errors.New("bet placement already in flight")

// ErrAbandoned 提交前上下文被关闭，编排已放弃且无任何副作用
var ErrAbandoned = errors.New("bet placement abandoned before submission")

// CheckpointSource 检查点来源
type CheckpointSource interface {
	LatestCheckpoint(ctx context.Context) (domain.Checkpoint, error)
}

// TransferBuilder 转账构建接口
type TransferBuilder interface {
	BuildTransfer(sender string, amountMajor decimal.Decimal, cp domain.Checkpoint) (*domain.UnsignedTransfer, error)
}

// SubmitGateway 签名与提交接口
type SubmitGateway interface {
	Sign(t *domain.UnsignedTransfer, signer wallet.Signer) (*gateway.SignedEnvelope, error)
	Submit(ctx context.Context, env *gateway.SignedEnvelope) (*domain.SubmittedTransaction, error)
}

// FinalityWatcher 确认观察接口
type FinalityWatcher interface {
	AwaitFinality(ctx context.Context, submitted *domain.SubmittedTransaction, cp domain.Checkpoint) (domain.FinalityResult, error)
}

// PlaceInput 一次下注的全部输入
// Signer 是协作方（钱包集成 / 服务端托管）注入的签名能力
type PlaceInput struct {
	BetID        string // 可选；为空时自动生成
	Direction    string
	Amount       string
	DurationCode string
	Signer       wallet.Signer
	OnStatus     StatusFn // 可选
}

// Orchestrator 下注编排器
// 把价格获取、交易构建、签名提交、确认观察、仓位记录串成单一用户可见操作：
// 本地校验先于任何外部调用；仅在确认后落库；任何语义步骤失败都不自动重试，
// 重新下注从 Idle 重新开始
type Orchestrator struct {
	oracle      oracle.PriceSource
	assetID     string
	checkpoints CheckpointSource
	builder     TransferBuilder
	gateway     SubmitGateway
	watcher     FinalityWatcher
	recorder    recorder.Recorder

	inflight atomic.Bool
	log      *logrus.Entry
}

// New 创建编排器
func New(
	priceSource oracle.PriceSource,
	assetID string,
	checkpoints CheckpointSource,
	builder TransferBuilder,
	gw SubmitGateway,
	fw FinalityWatcher,
	rec recorder.Recorder,
) *Orchestrator {
	return &Orchestrator{
		oracle:      priceSource,
		assetID:     assetID,
		checkpoints: checkpoints,
		builder:     builder,
		gateway:     gw,
		watcher:     fw,
		recorder:    rec,
		log:         logger.WithField("component", "betflow"),
	}
}

// InFlight 当前是否有进行中的编排
func (o *Orchestrator) InFlight() bool {
	return o.inflight.Load()
}

// Place 执行一次完整的下注编排
// 返回 ErrInFlight 表示并发提交被拒绝；返回 ErrAbandoned 表示提交前被关闭；
// 其余所有失败都体现在 Result.State == Failed 中，错误分类见 Result.Kind
func (o *Orchestrator) Place(ctx context.Context, input PlaceInput) (*Result, error) {
	// 同一表单实例至多一个进行中的编排
	if !o.inflight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer o.inflight.Store(false)

	betID := input.BetID
	if betID == "" {
		betID = uuid.NewString()
	}
	log := o.log.WithField("bet", betID)
	emit := func(s State, kind domain.FailureKind, detail string) {
		log.WithFields(logrus.Fields{"state": s, "kind": kind}).Debug("状态转移")
		if input.OnStatus != nil {
			input.OnStatus(Status{State: s, Kind: kind, Detail: detail, At: time.Now()})
		}
	}
	fail := func(err error) (*Result, error) {
		fe, ok := domain.AsFlowError(err)
		if !ok {
			fe = domain.NewFlowError(domain.KindSubmissionFailed, err.Error(), err)
		}
		log.WithFields(logrus.Fields{"kind": fe.Kind, "detail": fe.Detail}).Warn("下注失败")
		emit(StateFailed, fe.Kind, fe.Detail)
		return &Result{
			BetID:       betID,
			State:       StateFailed,
			Kind:        fe.Kind,
			Detail:      fe.Detail,
			UserMessage: fe.UserMessage(),
		}, nil
	}

	// 1. 本地校验：金额 / 周期 / 签名能力，任何网络调用之前完成
	emit(StateValidatingInput, "", "")
	req, err := domain.ParseBetRequest(input.Direction, input.Amount, input.DurationCode)
	if err != nil {
		return fail(err)
	}
	if input.Signer == nil {
		return fail(domain.NewFlowError(domain.KindNoSigningCapability, "钱包未连接", nil))
	}

	// 2. 获取参考价（失败绝不回退到陈旧价格）
	emit(StateFetchingPrice, "", "")
	quote, err := o.oracle.ReferencePrice(ctx, o.assetID)
	if err != nil {
		return fail(err)
	}

	// 3. 即时获取检查点并构建转账，保证有界的有效窗口
	emit(StateBuildingTransaction, "", "")
	cp, err := o.checkpoints.LatestCheckpoint(ctx)
	if err != nil {
		return fail(domain.NewFlowError(domain.KindSubmissionFailed, "获取检查点失败", err))
	}
	unsigned, err := o.builder.BuildTransfer(input.Signer.PublicKey(), req.AmountMajor, cp)
	if err != nil {
		return fail(err)
	}

	// 4. 委托签名（可能等待用户在钱包中交互，时长无上界）
	emit(StateAwaitingSignature, "", "")
	env, err := o.gateway.Sign(unsigned, input.Signer)
	if err != nil {
		return fail(err)
	}

	// 提交前关闭表单：放弃编排，无任何副作用
	if ctx.Err() != nil {
		log.Info("提交前上下文关闭，编排已放弃")
		return nil, ErrAbandoned
	}

	// 5. 提交；一旦提交，链上交易不可撤回，不再暴露取消
	emit(StateSubmitting, "", "")
	submitted, err := o.gateway.Submit(ctx, env)
	if err != nil {
		return fail(err)
	}
	log = log.WithField("tx", submitted.Signature)

	// 6. 等待确认或窗口结束
	emit(StateAwaitingConfirmation, "", "")
	finality, err := o.watcher.AwaitFinality(ctx, submitted, cp)
	if err != nil {
		return fail(domain.NewFlowError(domain.KindExpired, "确认观察中断", err))
	}
	switch finality.Status {
	case domain.FinalityConfirmed:
		// 继续落库
	case domain.FinalityFailed:
		return fail(domain.NewFlowError(domain.KindLedgerFailed, finality.Detail, nil))
	default:
		// Expired：结果未知，绝不当作成功
		return fail(domain.NewFlowError(domain.KindExpired, finality.Detail, nil))
	}

	// 7. 仅在确认之后写入持久记录
	emit(StatePersisting, "", "")
	position := &domain.ConfirmedPosition{
		Owner:           input.Signer.PublicKey(),
		Direction:       req.Direction,
		AmountMinor:     unsigned.AmountMinor,
		DurationSeconds: req.DurationSeconds,
		StartAt:         submitted.SubmittedAt,
		EntryPriceUSD:   quote.PriceUSD,
		TransactionID:   submitted.Signature,
		Resolved:        false,
	}
	recordID, err := o.recorder.Record(ctx, position)
	if err != nil {
		// 资金已转移：该失败必须与可重试的输入错误区分展示
		return fail(err)
	}

	emit(StateSucceeded, "", "")
	log.WithField("record", recordID).Info("下注完成")
	return &Result{
		BetID:    betID,
		State:    StateSucceeded,
		Position: position,
		RecordID: recordID,
	}, nil
}
