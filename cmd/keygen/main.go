package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/betbot/solbet/internal/wallet"
)

// keygen 初始化服务端托管签名密钥：
// 生成（或导入）助记词，派生 ed25519 密钥对并写入 badger 密钥库
func main() {
	storePath := flag.String("store", "data/secrets", "密钥库路径")
	name := flag.String("name", "vault-signer", "密钥名")
	mnemonic := flag.String("mnemonic", "", "导入已有助记词（为空则生成新的）")
	passphrase := flag.String("passphrase", "", "助记词口令（可选）")
	flag.Parse()

	_ = godotenv.Load()

	phrase := *mnemonic
	generated := false
	if phrase == "" {
		var err error
		phrase, err = wallet.NewMnemonic()
		if err != nil {
			fmt.Fprintf(os.Stderr, "生成助记词失败: %v\n", err)
			os.Exit(1)
		}
		generated = true
	}

	priv, err := wallet.KeypairFromMnemonic(phrase, *passphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "派生密钥失败: %v\n", err)
		os.Exit(1)
	}

	signer, err := wallet.NewKeypairSigner(priv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "构造签名器失败: %v\n", err)
		os.Exit(1)
	}

	var storeKey []byte
	if v := os.Getenv("SOLBET_STORE_KEY"); v != "" {
		storeKey, err = hex.DecodeString(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "SOLBET_STORE_KEY 不是合法 hex: %v\n", err)
			os.Exit(1)
		}
	}

	store, err := wallet.OpenSecretStore(wallet.OpenOptions{
		Path:          *storePath,
		EncryptionKey: storeKey,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开密钥库失败: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.PutKeypair(*name, priv); err != nil {
		fmt.Fprintf(os.Stderr, "写入密钥库失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("密钥已写入: %s (name=%s)\n", *storePath, *name)
	fmt.Printf("地址: %s\n", signer.PublicKey())
	if generated {
		fmt.Println("请离线妥善保存助记词（仅此一次展示）：")
		fmt.Println(phrase)
	}
}
