package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/betbot/solbet/internal/betflow"
	"github.com/betbot/solbet/internal/gateway"
	"github.com/betbot/solbet/internal/ledger"
	"github.com/betbot/solbet/internal/oracle"
	"github.com/betbot/solbet/internal/recorder"
	"github.com/betbot/solbet/internal/server"
	"github.com/betbot/solbet/internal/wallet"
	"github.com/betbot/solbet/internal/watcher"
	"github.com/betbot/solbet/pkg/config"
	"github.com/betbot/solbet/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	// .env 仅用于本地开发，缺失不报错
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	// 签名能力：服务端托管密钥，从密钥库加载
	var storeKey []byte
	if v := os.Getenv("SOLBET_STORE_KEY"); v != "" {
		storeKey, err = hex.DecodeString(v)
		if err != nil {
			logger.Errorf("SOLBET_STORE_KEY 不是合法 hex: %v", err)
			os.Exit(1)
		}
	}
	secrets, err := wallet.OpenSecretStore(wallet.OpenOptions{
		Path:          cfg.Wallet.SecretStorePath,
		EncryptionKey: storeKey,
	})
	if err != nil {
		logger.Errorf("打开密钥库失败: %v", err)
		os.Exit(1)
	}
	defer secrets.Close()

	signer, err := wallet.SignerFromStore(secrets, cfg.Wallet.KeyName)
	if err != nil {
		logger.Errorf("加载签名密钥失败（先用 keygen 初始化）: %v", err)
		os.Exit(1)
	}
	logger.Infof("签名地址: %s", signer.PublicKey())

	// 仓位记录后端：优先本地 sqlite，其次远端 REST
	var store recorder.Recorder
	if cfg.Backend.SQLitePath != "" {
		sqliteStore, err := recorder.OpenSQLite(cfg.Backend.SQLitePath)
		if err != nil {
			logger.Errorf("打开仓位数据库失败: %v", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	} else {
		store = recorder.NewRESTRecorder(cfg.Backend.RESTURL)
	}

	// 核心组件
	rpc := ledger.NewRPCClient(cfg.Ledger.RPCURL, ledger.Commitment(cfg.Ledger.Commitment))
	builder, err := ledger.NewBuilder(cfg.Ledger.VaultAddress)
	if err != nil {
		logger.Errorf("金库地址配置错误: %v", err)
		os.Exit(1)
	}
	priceClient := oracle.NewClient(cfg.Oracle.BaseURL)
	quoteCache := oracle.NewQuoteCache(priceClient, cfg.Oracle.QuoteTTL.Duration())
	gw := gateway.New(rpc)
	fw := watcher.New(rpc, cfg.Ledger.PollInterval.Duration())

	factory := func() *betflow.Orchestrator {
		return betflow.New(priceClient, cfg.Oracle.AssetID, rpc, builder, gw, fw, store)
	}

	srv := server.New(server.Config{
		Listen:  cfg.Listen,
		AssetID: cfg.Oracle.AssetID,
	}, factory, signer, store, quoteCache)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("服务退出: %v", err)
		os.Exit(1)
	}
}
