package ledger

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/pkg/errors"

	"github.com/betbot/solbet/internal/domain"
)

// 转账消息的紧凑二进制布局：
//   version(1) | sender(32) | recipient(32) | lamports(8, LE) | blockhash(32)
const (
	messageVersion = 1
	messageLength  = 1 + AddressLength + AddressLength + 8 + 32
	// SignatureLength ed25519 签名长度
	SignatureLength = 64
)

// EncodeTransferMessage 把未签名转账编码为待签名的消息字节
// 编码是确定性的：同一笔转账永远产生同一份消息
func EncodeTransferMessage(t *domain.UnsignedTransfer) ([]byte, error) {
	sender, err := ParseAddress(t.Sender)
	if err != nil {
		return nil, errors.Wrap(err, "付款方地址非法")
	}
	recipient, err := ParseAddress(t.Recipient)
	if err != nil {
		return nil, errors.Wrap(err, "收款方地址非法")
	}
	blockhash := base58.Decode(t.Checkpoint.Blockhash)
	if len(blockhash) != 32 {
		return nil, errors.Errorf("检查点哈希非法: %q", t.Checkpoint.Blockhash)
	}

	msg := make([]byte, 0, messageLength)
	msg = append(msg, messageVersion)
	msg = append(msg, sender.Bytes()...)
	msg = append(msg, recipient.Bytes()...)
	msg = binary.LittleEndian.AppendUint64(msg, t.AmountMinor)
	msg = append(msg, blockhash...)
	return msg, nil
}

// EncodeSignedEnvelope 把签名与消息组装为提交用的 base64 载荷
// 布局：signature(64) | message
func EncodeSignedEnvelope(signature, message []byte) (string, error) {
	if len(signature) != SignatureLength {
		return "", errors.Errorf("签名长度为 %d，期望 %d", len(signature), SignatureLength)
	}
	envelope := make([]byte, 0, len(signature)+len(message))
	envelope = append(envelope, signature...)
	envelope = append(envelope, message...)
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// SignatureID 交易 ID 即首个签名的 base58 编码
func SignatureID(signature []byte) string {
	return base58.Encode(signature)
}
