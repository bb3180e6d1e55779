package betflow

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/betbot/solbet/internal/domain"
	"github.com/betbot/solbet/internal/gateway"
	"github.com/betbot/solbet/internal/ledger"
	"github.com/betbot/solbet/internal/recorder"
	"github.com/betbot/solbet/internal/wallet"
)

// mockDeps 编排器全部外部依赖的桩实现
// Calls 记录每个方法的调用次数，ErrorOnNext 注入一次性错误
type mockDeps struct {
	mu          sync.Mutex
	Calls       map[string]int
	ErrorOnNext map[string]error

	Quote    *domain.PriceQuote
	Finality domain.FinalityResult

	Recorded []*domain.ConfirmedPosition
}

func newMockDeps() *mockDeps {
	return &mockDeps{
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
		Quote:       &domain.PriceQuote{Asset: "solana", PriceUSD: 150.25, FetchedAt: time.Now()},
		Finality:    domain.FinalityResult{Status: domain.FinalityConfirmed},
	}
}

func (m *mockDeps) called(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method]++
	if err, ok := m.ErrorOnNext[method]; ok {
		delete(m.ErrorOnNext, method)
		return err
	}
	return nil
}

func (m *mockDeps) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *mockDeps) ReferencePrice(_ context.Context, _ string) (*domain.PriceQuote, error) {
	if err := m.called("ReferencePrice"); err != nil {
		return nil, err
	}
	return m.Quote, nil
}

func (m *mockDeps) LatestCheckpoint(_ context.Context) (domain.Checkpoint, error) {
	if err := m.called("LatestCheckpoint"); err != nil {
		return domain.Checkpoint{}, err
	}
	return domain.Checkpoint{
		Blockhash:            base58.Encode(bytes.Repeat([]byte{0x42}, 32)),
		LastValidBlockHeight: 1000,
	}, nil
}

func (m *mockDeps) Sign(t *domain.UnsignedTransfer, signer wallet.Signer) (*gateway.SignedEnvelope, error) {
	if err := m.called("Sign"); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, domain.NewFlowError(domain.KindNoSigningCapability, "未提供签名能力", nil)
	}
	return &gateway.SignedEnvelope{
		Payload:    "payload",
		Signature:  bytes.Repeat([]byte{0x01}, ledger.SignatureLength),
		Checkpoint: t.Checkpoint,
	}, nil
}

func (m *mockDeps) Submit(_ context.Context, env *gateway.SignedEnvelope) (*domain.SubmittedTransaction, error) {
	if err := m.called("Submit"); err != nil {
		return nil, err
	}
	return &domain.SubmittedTransaction{
		Signature:   ledger.SignatureID(env.Signature),
		Checkpoint:  env.Checkpoint,
		SubmittedAt: time.Now(),
	}, nil
}

func (m *mockDeps) AwaitFinality(_ context.Context, _ *domain.SubmittedTransaction, _ domain.Checkpoint) (domain.FinalityResult, error) {
	if err := m.called("AwaitFinality"); err != nil {
		return domain.FinalityResult{}, err
	}
	return m.Finality, nil
}

func (m *mockDeps) Record(_ context.Context, position *domain.ConfirmedPosition) (string, error) {
	if err := m.called("Record"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded = append(m.Recorded, position)
	return "record-1", nil
}

func (m *mockDeps) List(_ context.Context, _ string) ([]recorder.StoredPosition, error) {
	_ = m.called("List")
	return nil, nil
}

func newFlowSigner(t *testing.T) wallet.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("生成密钥失败: %v", err)
	}
	signer, err := wallet.NewKeypairSigner(priv)
	if err != nil {
		t.Fatalf("构造签名器失败: %v", err)
	}
	return signer
}

// newTestFlow 用真实构建器 + 桩依赖组装编排器
func newTestFlow(t *testing.T, deps *mockDeps) *Orchestrator {
	t.Helper()
	builder, err := ledger.NewBuilder(base58.Encode(bytes.Repeat([]byte{0x22}, 32)))
	if err != nil {
		t.Fatalf("构造转账构建器失败: %v", err)
	}
	return New(deps, "solana", deps, builder, deps, deps, deps)
}
