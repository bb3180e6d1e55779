package gateway

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/pkg/errors"

	"github.com/betbot/solbet/internal/domain"
	"github.com/betbot/solbet/internal/ledger"
	"github.com/betbot/solbet/internal/wallet"
)

// fakeSubmitter 可注入错误的提交桩
type fakeSubmitter struct {
	Calls int
	TxID  string
	Err   error
}

func (f *fakeSubmitter) SubmitTransaction(_ context.Context, _ string) (string, error) {
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	return f.TxID, nil
}

// decliningSigner 模拟用户在钱包中点了取消
type decliningSigner struct{}

func (decliningSigner) PublicKey() string           { return "decliner" }
func (decliningSigner) Sign([]byte) ([]byte, error) { return nil, wallet.ErrDeclined }

func newTestSigner(t *testing.T) wallet.Signer {
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

func testTransfer(t *testing.T, signer wallet.Signer) *domain.UnsignedTransfer {
	t.Helper()
	return &domain.UnsignedTransfer{
		Sender:      signer.PublicKey(),
		Recipient:   base58.Encode(bytes.Repeat([]byte{0x22}, 32)),
		AmountMinor: 1_500_000_000,
		Checkpoint: domain.Checkpoint{
			Blockhash:            base58.Encode(bytes.Repeat([]byte{0x42}, 32)),
			LastValidBlockHeight: 1000,
		},
	}
}

// TestSignNoCapability 没有签名能力必须立刻失败，不触发任何网络操作
func TestSignNoCapability(t *testing.T) {
	gw := New(&fakeSubmitter{})
	_, err := gw.Sign(testTransfer(t, newTestSigner(t)), nil)
	if kind, _ := domain.KindOf(err); kind != domain.KindNoSigningCapability {
		t.Errorf("错误分类应为 NoSigningCapability，实际 %v", kind)
	}
}

// TestSignDeclined 用户取消签名归为 SigningRejected，不算系统故障
func TestSignDeclined(t *testing.T) {
	sub := &fakeSubmitter{}
	gw := New(sub)
	signer := newTestSigner(t)

	_, err := gw.Sign(testTransfer(t, signer), decliningSigner{})
	if kind, _ := domain.KindOf(err); kind != domain.KindSigningRejected {
		t.Errorf("错误分类应为 SigningRejected，实际 %v", kind)
	}
	if sub.Calls != 0 {
		t.Errorf("签名被拒后不应提交，实际提交了 %d 次", sub.Calls)
	}
}

// TestSignProducesVerifiableEnvelope 签名信封中的签名必须能用公钥验证
func TestSignProducesVerifiableEnvelope(t *testing.T) {
	gw := New(&fakeSubmitter{})
	signer := newTestSigner(t)
	transfer := testTransfer(t, signer)

	env, err := gw.Sign(transfer, signer)
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}
	if len(env.Signature) != ledger.SignatureLength {
		t.Fatalf("签名长度错误: %d", len(env.Signature))
	}

	message, err := ledger.EncodeTransferMessage(transfer)
	if err != nil {
		t.Fatalf("消息编码失败: %v", err)
	}
	pub := base58.Decode(signer.PublicKey())
	if !ed25519.Verify(ed25519.PublicKey(pub), message, env.Signature) {
		t.Error("签名无法用公钥验证")
	}
	if env.Checkpoint != transfer.Checkpoint {
		t.Error("信封未绑定检查点")
	}
}

// TestSubmitSuccess 提交成功返回交易标识
func TestSubmitSuccess(t *testing.T) {
	sub := &fakeSubmitter{TxID: "tx-abc"}
	gw := New(sub)
	signer := newTestSigner(t)

	submitted, err := gw.SignAndSubmit(context.Background(), testTransfer(t, signer), signer)
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if submitted.Signature != "tx-abc" {
		t.Errorf("交易标识错误: %s", submitted.Signature)
	}
	if sub.Calls != 1 {
		t.Errorf("应恰好提交 1 次，实际 %d 次", sub.Calls)
	}
	if submitted.SubmittedAt.IsZero() {
		t.Error("提交时间未填写")
	}
}

// TestSubmitEmptyTxIDFallsBack 节点未回显交易标识时退回签名派生的 ID
func TestSubmitEmptyTxIDFallsBack(t *testing.T) {
	gw := New(&fakeSubmitter{TxID: ""})
	signer := newTestSigner(t)

	submitted, err := gw.SignAndSubmit(context.Background(), testTransfer(t, signer), signer)
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if submitted.Signature == "" {
		t.Error("交易标识不应为空")
	}
}

// TestSubmitErrorMapping 提交错误的分类传递
func TestSubmitErrorMapping(t *testing.T) {
	// 下层已经分类过的错误原样传递
	sub := &fakeSubmitter{Err: domain.NewFlowError(domain.KindSubmissionFailed, "节点拒绝", nil)}
	gw := New(sub)
	signer := newTestSigner(t)

	_, err := gw.SignAndSubmit(context.Background(), testTransfer(t, signer), signer)
	if kind, _ := domain.KindOf(err); kind != domain.KindSubmissionFailed {
		t.Errorf("错误分类应为 SubmissionFailed，实际 %v", kind)
	}

	// 未分类的传输错误包装为 SubmissionFailed
	sub2 := &fakeSubmitter{Err: errors.New("connection reset")}
	_, err = New(sub2).SignAndSubmit(context.Background(), testTransfer(t, signer), signer)
	if kind, _ := domain.KindOf(err); kind != domain.KindSubmissionFailed {
		t.Errorf("传输错误分类应为 SubmissionFailed，实际 %v", kind)
	}
}
