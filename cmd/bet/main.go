package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/betbot/solbet/internal/betflow"
	"github.com/betbot/solbet/internal/gateway"
	"github.com/betbot/solbet/internal/ledger"
	"github.com/betbot/solbet/internal/oracle"
	"github.com/betbot/solbet/internal/recorder"
	"github.com/betbot/solbet/internal/wallet"
	"github.com/betbot/solbet/internal/watcher"
	"github.com/betbot/solbet/pkg/config"
	"github.com/betbot/solbet/pkg/logger"
)

// bet 一次性下注命令
// 默认输出日志；-tui 展示实时状态视图
func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	direction := flag.String("direction", "", "方向: long / short")
	amount := flag.String("amount", "", "主单位金额，如 1.5")
	duration := flag.String("duration", "", "合约周期: 1h/4h/1d/1w/1m")
	useTUI := flag.Bool("tui", false, "展示实时状态视图")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logCfg := cfg.LoggerConfig()
	if *useTUI {
		// TUI 模式下控制台归 bubbletea，日志只进文件
		if logCfg.OutputFile == "" {
			logCfg.OutputFile = "logs/bet.log"
		}
		logCfg.Level = "error"
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
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
	secrets, err := wallet.OpenSecretStore(wallet.OpenOptions{
		Path:          cfg.Wallet.SecretStorePath,
		EncryptionKey: storeKey,
		ReadOnly:      true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开密钥库失败: %v\n", err)
		os.Exit(1)
	}
	defer secrets.Close()

	signer, err := wallet.SignerFromStore(secrets, cfg.Wallet.KeyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载签名密钥失败（先用 keygen 初始化）: %v\n", err)
		os.Exit(1)
	}

	var store recorder.Recorder
	if cfg.Backend.SQLitePath != "" {
		sqliteStore, err := recorder.OpenSQLite(cfg.Backend.SQLitePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "打开仓位数据库失败: %v\n", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	} else {
		store = recorder.NewRESTRecorder(cfg.Backend.RESTURL)
	}

	rpc := ledger.NewRPCClient(cfg.Ledger.RPCURL, ledger.Commitment(cfg.Ledger.Commitment))
	builder, err := ledger.NewBuilder(cfg.Ledger.VaultAddress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "金库地址配置错误: %v\n", err)
		os.Exit(1)
	}
	flow := betflow.New(
		oracle.NewClient(cfg.Oracle.BaseURL),
		cfg.Oracle.AssetID,
		rpc,
		builder,
		gateway.New(rpc),
		watcher.New(rpc, cfg.Ledger.PollInterval.Duration()),
		store,
	)

	input := betflow.PlaceInput{
		Direction:    *direction,
		Amount:       *amount,
		DurationCode: *duration,
		Signer:       signer,
	}

	if *useTUI {
		os.Exit(runTUI(flow, input))
	}

	input.OnStatus = func(s betflow.Status) {
		fmt.Printf("  -> %s\n", stateLabel(s.State))
	}
	result, err := flow.Place(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "下注未完成: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
	if !result.Succeeded() {
		os.Exit(1)
	}
}

func printResult(r *betflow.Result) {
	if r.Succeeded() {
		fmt.Printf("下注成功: tx=%s record=%s entry=%.2f USD\n",
			r.Position.TransactionID, r.RecordID, r.Position.EntryPriceUSD)
		return
	}
	fmt.Printf("下注失败 [%s]: %s\n", r.Kind, r.UserMessage)
	if r.Detail != "" {
		fmt.Printf("  detail: %s\n", r.Detail)
	}
}
