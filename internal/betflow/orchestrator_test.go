package betflow

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/betbot/solbet/internal/domain"
)

func collectStatuses(statuses *[]Status, mu *sync.Mutex) StatusFn {
	return func(s Status) {
		mu.Lock()
		defer mu.Unlock()
		*statuses = append(*statuses, s)
	}
}

// TestPlaceHappyPath 完整成功路径：
// long 1.5 SOL 1d -> 换算 / 报价 / 构建 / 签名 / 提交 / 确认 / 落库
func TestPlaceHappyPath(t *testing.T) {
	deps := newMockDeps()
	flow := newTestFlow(t, deps)
	signer := newFlowSigner(t)

	var (
		statuses []Status
		mu       sync.Mutex
	)
	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "long",
		Amount:       "1.5",
		DurationCode: "1d",
		Signer:       signer,
		OnStatus:     collectStatuses(&statuses, &mu),
	})
	if err != nil {
		t.Fatalf("下注失败: %v", err)
	}
	if !result.Succeeded() {
		t.Fatalf("期望成功，实际 %s (%s: %s)", result.State, result.Kind, result.Detail)
	}

	// 状态序列必须按声明顺序走完
	want := []State{
		StateValidatingInput,
		StateFetchingPrice,
		StateBuildingTransaction,
		StateAwaitingSignature,
		StateSubmitting,
		StateAwaitingConfirmation,
		StatePersisting,
		StateSucceeded,
	}
	if len(statuses) != len(want) {
		t.Fatalf("状态数量错误: got %d, want %d", len(statuses), len(want))
	}
	for i, s := range statuses {
		if s.State != want[i] {
			t.Errorf("第 %d 个状态: got %s, want %s", i, s.State, want[i])
		}
	}

	// 仓位记录的各字段
	if len(deps.Recorded) != 1 {
		t.Fatalf("应恰好落库一次，实际 %d 次", len(deps.Recorded))
	}
	pos := deps.Recorded[0]
	if pos.AmountMinor != 1_500_000_000 {
		t.Errorf("金额换算错误: %d", pos.AmountMinor)
	}
	if pos.DurationSeconds != 86400 {
		t.Errorf("周期映射错误: %d", pos.DurationSeconds)
	}
	if pos.EntryPriceUSD != 150.25 {
		t.Errorf("入场价错误: %v", pos.EntryPriceUSD)
	}
	if pos.Direction != domain.DirectionLong {
		t.Errorf("方向错误: %v", pos.Direction)
	}
	if pos.Owner != signer.PublicKey() {
		t.Errorf("持仓人错误: %s", pos.Owner)
	}
	if pos.TransactionID == "" || pos.TransactionID != result.Position.TransactionID {
		t.Error("交易标识未写入仓位")
	}
	if pos.Resolved {
		t.Error("新仓位不应是已结算状态")
	}
	if result.RecordID != "record-1" {
		t.Errorf("记录标识错误: %s", result.RecordID)
	}
}

// TestPlaceInvalidInput 本地校验失败：不触发任何外部调用
func TestPlaceInvalidInput(t *testing.T) {
	deps := newMockDeps()
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "long",
		Amount:       "0",
		DurationCode: "1d",
		Signer:       newFlowSigner(t),
	})
	if err != nil {
		t.Fatalf("本地校验失败应体现在 Result 中: %v", err)
	}
	if result.Kind != domain.KindInvalidInput {
		t.Errorf("错误分类应为 InvalidInput，实际 %v", result.Kind)
	}
	for _, method := range []string{"ReferencePrice", "LatestCheckpoint", "Sign", "Submit", "AwaitFinality", "Record"} {
		if n := deps.callCount(method); n != 0 {
			t.Errorf("本地校验失败后不应调用 %s（调用了 %d 次）", method, n)
		}
	}
}

// TestPlaceNoSigner 缺少签名能力：在任何网络调用之前失败
func TestPlaceNoSigner(t *testing.T) {
	deps := newMockDeps()
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "long",
		Amount:       "1",
		DurationCode: "1h",
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if result.Kind != domain.KindNoSigningCapability {
		t.Errorf("错误分类应为 NoSigningCapability，实际 %v", result.Kind)
	}
	if n := deps.callCount("ReferencePrice"); n != 0 {
		t.Errorf("缺少签名能力时不应请求价格（调用了 %d 次）", n)
	}
}

// TestPlaceOracleUnavailable 价格源宕机：失败且绝不使用陈旧价格
func TestPlaceOracleUnavailable(t *testing.T) {
	deps := newMockDeps()
	deps.ErrorOnNext["ReferencePrice"] = domain.NewFlowError(domain.KindOracleUnavailable, "http 503", nil)
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "short",
		Amount:       "1",
		DurationCode: "1h",
		Signer:       newFlowSigner(t),
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if result.Kind != domain.KindOracleUnavailable {
		t.Errorf("错误分类应为 OracleUnavailable，实际 %v", result.Kind)
	}
	for _, method := range []string{"LatestCheckpoint", "Sign", "Submit", "Record"} {
		if n := deps.callCount(method); n != 0 {
			t.Errorf("价格获取失败后不应调用 %s", method)
		}
	}
}

// TestPlaceSigningRejected 用户取消签名：不提交、不落库
func TestPlaceSigningRejected(t *testing.T) {
	deps := newMockDeps()
	deps.ErrorOnNext["Sign"] = domain.NewFlowError(domain.KindSigningRejected, "用户取消签名", nil)
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "long",
		Amount:       "2",
		DurationCode: "4h",
		Signer:       newFlowSigner(t),
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if result.Kind != domain.KindSigningRejected {
		t.Errorf("错误分类应为 SigningRejected，实际 %v", result.Kind)
	}
	if deps.callCount("Submit") != 0 {
		t.Error("签名被拒后不应提交")
	}
	if deps.callCount("Record") != 0 {
		t.Error("签名被拒后不应落库")
	}
}

// TestPlaceExpired 检查点窗口结束仍未确认：结果未知，绝不当作成功，绝不落库
func TestPlaceExpired(t *testing.T) {
	deps := newMockDeps()
	deps.Finality = domain.FinalityResult{Status: domain.FinalityExpired, Detail: "检查点有效窗口已结束"}
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "long",
		Amount:       "1",
		DurationCode: "1w",
		Signer:       newFlowSigner(t),
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if result.Kind != domain.KindExpired {
		t.Errorf("错误分类应为 Expired，实际 %v", result.Kind)
	}
	if deps.callCount("Record") != 0 {
		t.Error("结果未知时绝不落库")
	}
	// 提交只发生一次，绝不自动重发
	if n := deps.callCount("Submit"); n != 1 {
		t.Errorf("应恰好提交 1 次，实际 %d 次", n)
	}
}

// TestPlaceLedgerFailed 链上执行失败
func TestPlaceLedgerFailed(t *testing.T) {
	deps := newMockDeps()
	deps.Finality = domain.FinalityResult{Status: domain.FinalityFailed, Detail: "InstructionError"}
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "short",
		Amount:       "1",
		DurationCode: "1m",
		Signer:       newFlowSigner(t),
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if result.Kind != domain.KindLedgerFailed {
		t.Errorf("错误分类应为 LedgerFailed，实际 %v", result.Kind)
	}
	if deps.callCount("Record") != 0 {
		t.Error("链上失败后不应落库")
	}
}

// TestPlacePersistenceError 转账已确认但落库失败：
// 必须与可重试的输入错误区分，用户提示要说明资金已转移
func TestPlacePersistenceError(t *testing.T) {
	deps := newMockDeps()
	deps.ErrorOnNext["Record"] = domain.NewFlowError(domain.KindPersistenceError, "backend 500", nil)
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "long",
		Amount:       "1.5",
		DurationCode: "1d",
		Signer:       newFlowSigner(t),
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if result.Kind != domain.KindPersistenceError {
		t.Errorf("错误分类应为 PersistenceError，实际 %v", result.Kind)
	}
	if result.UserMessage == "" || result.UserMessage == domain.UserMessage(domain.KindInvalidInput) {
		t.Error("落库失败的用户提示必须与输入错误区分")
	}
	// 交易确实发生了
	if deps.callCount("Submit") != 1 || deps.callCount("AwaitFinality") != 1 {
		t.Error("落库失败前转账应已提交并确认")
	}
}

// TestPlaceCheckpointFailure 检查点获取失败归为提交失败
func TestPlaceCheckpointFailure(t *testing.T) {
	deps := newMockDeps()
	deps.ErrorOnNext["LatestCheckpoint"] = errors.New("rpc timeout")
	flow := newTestFlow(t, deps)

	result, err := flow.Place(context.Background(), PlaceInput{
		Direction:    "long",
		Amount:       "1",
		DurationCode: "1h",
		Signer:       newFlowSigner(t),
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if result.Kind != domain.KindSubmissionFailed {
		t.Errorf("错误分类应为 SubmissionFailed，实际 %v", result.Kind)
	}
	if deps.callCount("Sign") != 0 {
		t.Error("检查点获取失败后不应签名")
	}
}

// TestPlaceAbandonedBeforeSubmit 提交前上下文关闭：放弃编排，无任何提交或落库
func TestPlaceAbandonedBeforeSubmit(t *testing.T) {
	deps := newMockDeps()
	flow := newTestFlow(t, deps)

	ctx, cancel := context.WithCancel(context.Background())
	signer := newFlowSigner(t)
	input := PlaceInput{
		Direction:    "long",
		Amount:       "1",
		DurationCode: "1h",
		Signer:       signer,
		// 签名阶段用户关闭了表单
		OnStatus: func(s Status) {
			if s.State == StateAwaitingSignature {
				cancel()
			}
		},
	}
	_, err := flow.Place(ctx, input)
	if !errors.Is(err, ErrAbandoned) {
		t.Fatalf("期望 ErrAbandoned，实际 %v", err)
	}
	if deps.callCount("Submit") != 0 {
		t.Error("放弃后不应提交")
	}
	if deps.callCount("Record") != 0 {
		t.Error("放弃后不应落库")
	}
}

// TestPlaceInFlightGuard 同一实例并发提交被拒绝
func TestPlaceInFlightGuard(t *testing.T) {
	deps := newMockDeps()
	flow := newTestFlow(t, deps)
	signer := newFlowSigner(t)

	blockSign := make(chan struct{})
	firstStarted := make(chan struct{})

	input := PlaceInput{
		Direction:    "long",
		Amount:       "1",
		DurationCode: "1h",
		Signer:       signer,
		OnStatus: func(s Status) {
			if s.State == StateAwaitingSignature {
				close(firstStarted)
				<-blockSign
			}
		},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := flow.Place(context.Background(), input); err != nil {
			t.Errorf("首个下注失败: %v", err)
		}
	}()

	<-firstStarted
	_, err := flow.Place(context.Background(), PlaceInput{
		Direction: "long", Amount: "1", DurationCode: "1h", Signer: signer,
	})
	if !errors.Is(err, ErrInFlight) {
		t.Errorf("并发提交应返回 ErrInFlight，实际 %v", err)
	}
	close(blockSign)
	<-done

	// 首个完成后可以再次下注
	again := PlaceInput{Direction: "short", Amount: "2", DurationCode: "4h", Signer: signer}
	if _, err := flow.Place(context.Background(), again); err != nil {
		t.Errorf("完成后的再次下注应被接受: %v", err)
	}
}
