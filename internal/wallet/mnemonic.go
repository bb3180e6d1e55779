package wallet

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// NewMnemonic 生成 24 词助记词
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// KeypairFromMnemonic 由助记词派生 ed25519 密钥对
// 用 bip39 种子的前 32 字节作为 ed25519 种子，派生是确定性的
func KeypairFromMnemonic(mnemonic, passphrase string) (ed25519.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("助记词无效")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	return ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]), nil
}
