package wallet

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/betbot/solbet/internal/ledger"
)

// ErrDeclined 外部签名能力拒绝签名（用户取消）
var ErrDeclined = errors.New("signing declined")

// Signer 注入式签名能力
// 编排器只依赖该接口，私钥材料由宿主（钱包集成 / 服务端托管）持有
type Signer interface {
	// PublicKey 返回付款方地址（base58）
	PublicKey() string
	// Sign 对消息字节签名；用户取消时返回 ErrDeclined
	Sign(message []byte) ([]byte, error)
}

// KeypairSigner 基于本地 ed25519 密钥对的签名实现（服务端托管场景）
type KeypairSigner struct {
	priv ed25519.PrivateKey
	addr ledger.Address
}

// NewKeypairSigner 由 ed25519 私钥创建签名器
func NewKeypairSigner(priv ed25519.PrivateKey) (*KeypairSigner, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("私钥长度为 %d，期望 %d", len(priv), ed25519.PrivateKeySize)
	}
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("私钥公钥类型异常")
	}
	addr, err := ledger.AddressFromBytes(pub)
	if err != nil {
		return nil, err
	}
	return &KeypairSigner{priv: priv, addr: addr}, nil
}

// PublicKey 返回地址（base58）
func (s *KeypairSigner) PublicKey() string {
	return s.addr.String()
}

// Sign 对消息签名
func (s *KeypairSigner) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}
