package gateway

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/solbet/internal/domain"
	"github.com/betbot/solbet/internal/ledger"
	"github.com/betbot/solbet/internal/wallet"
	"github.com/betbot/solbet/pkg/logger"
)

// Submitter 交易提交接口（生产实现为 ledger.RPCClient）
type Submitter interface {
	SubmitTransaction(ctx context.Context, signedBase64 string) (string, error)
}

// SignedEnvelope 已签名待提交的交易载荷
type SignedEnvelope struct {
	Payload    string            // base64 提交载荷
	Signature  []byte            // ed25519 签名
	Checkpoint domain.Checkpoint // 绑定的检查点
}

// Gateway 签名与提交网关
// 签名动作完全委托给注入的签名能力，本包不接触私钥材料
type Gateway struct {
	submitter Submitter
	log       *logrus.Entry
}

// New 创建网关
func New(submitter Submitter) *Gateway {
	return &Gateway{
		submitter: submitter,
		log:       logger.WithField("component", "gateway"),
	}
}

// Sign 委托签名能力对转账消息签名
// signer 为空 -> NoSigningCapability；签名能力拒绝 -> SigningRejected
func (g *Gateway) Sign(t *domain.UnsignedTransfer, signer wallet.Signer) (*SignedEnvelope, error) {
	if signer == nil {
		return nil, domain.NewFlowError(domain.KindNoSigningCapability, "未提供签名能力", nil)
	}

	message, err := ledger.EncodeTransferMessage(t)
	if err != nil {
		return nil, domain.NewFlowError(domain.KindSubmissionFailed, "转账消息编码失败", err)
	}

	signature, err := signer.Sign(message)
	if err != nil {
		// 钱包侧签名失败统一按用户取消处理，不算系统故障
		if errors.Is(err, wallet.ErrDeclined) {
			return nil, domain.NewFlowError(domain.KindSigningRejected, "用户取消签名", err)
		}
		return nil, domain.NewFlowError(domain.KindSigningRejected, "签名能力返回错误", err)
	}

	payload, err := ledger.EncodeSignedEnvelope(signature, message)
	if err != nil {
		return nil, domain.NewFlowError(domain.KindSubmissionFailed, "签名交易组装失败", err)
	}

	return &SignedEnvelope{
		Payload:    payload,
		Signature:  signature,
		Checkpoint: t.Checkpoint,
	}, nil
}

// Submit 提交已签名交易，返回链上交易标识
// 传输层重试在 Submitter 内部完成；本层绝不重新签名或重建交易
func (g *Gateway) Submit(ctx context.Context, env *SignedEnvelope) (*domain.SubmittedTransaction, error) {
	txID, err := g.submitter.SubmitTransaction(ctx, env.Payload)
	if err != nil {
		if _, ok := domain.AsFlowError(err); ok {
			return nil, err
		}
		return nil, domain.NewFlowError(domain.KindSubmissionFailed, "提交交易失败", err)
	}
	if txID == "" {
		txID = ledger.SignatureID(env.Signature)
	}

	g.log.WithField("tx", txID).Info("交易已提交")
	return &domain.SubmittedTransaction{
		Signature:   txID,
		Checkpoint:  env.Checkpoint,
		SubmittedAt: time.Now(),
	}, nil
}

// SignAndSubmit 签名并提交转账（组合 Sign 与 Submit）
func (g *Gateway) SignAndSubmit(ctx context.Context, t *domain.UnsignedTransfer, signer wallet.Signer) (*domain.SubmittedTransaction, error) {
	env, err := g.Sign(t, signer)
	if err != nil {
		return nil, err
	}
	return g.Submit(ctx, env)
}
