package ledger

import (
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/pkg/errors"
)

// AddressLength 账本地址的原始字节长度（ed25519 公钥）
const AddressLength = 32

// Address 已校验的账本地址
type Address struct {
	raw     [AddressLength]byte
	encoded string
}

// ParseAddress 解析 base58 地址
// 解码后必须恰好 32 字节，否则视为非法地址
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, errors.New("地址为空")
	}
	decoded := base58.Decode(s)
	if len(decoded) != AddressLength {
		return Address{}, errors.Errorf("地址 %q 解码后长度为 %d，期望 %d", s, len(decoded), AddressLength)
	}
	var a Address
	copy(a.raw[:], decoded)
	a.encoded = s
	return a, nil
}

// AddressFromBytes 由原始公钥字节构造地址
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, errors.Errorf("公钥长度为 %d，期望 %d", len(b), AddressLength)
	}
	var a Address
	copy(a.raw[:], b)
	a.encoded = base58.Encode(b)
	return a, nil
}

// String 返回 base58 编码
func (a Address) String() string {
	return a.encoded
}

// Bytes 返回原始 32 字节
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.raw[:])
	return out
}

// IsZero 是否为零值（未初始化）
func (a Address) IsZero() bool {
	return a.encoded == ""
}
