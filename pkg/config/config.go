package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/betbot/solbet/internal/ledger"
	"github.com/betbot/solbet/pkg/logger"
)

// OracleConfig 价格源配置
type OracleConfig struct {
	BaseURL  string   `yaml:"base_url"`  // 行情 API 根地址
	AssetID  string   `yaml:"asset_id"`  // 资产 ID，如 "solana"
	QuoteTTL Duration `yaml:"quote_ttl"` // 报价缓存新鲜度窗口
}

// LedgerConfig 账本节点配置
type LedgerConfig struct {
	RPCURL       string   `yaml:"rpc_url"`       // 节点 RPC 地址
	Commitment   string   `yaml:"commitment"`    // 确认级别：confirmed / finalized
	PollInterval Duration `yaml:"poll_interval"` // 确认轮询间隔
	VaultAddress string   `yaml:"vault_address"` // 金库（收款）地址
}

// BackendConfig 仓位记录后端配置
// 二选一：本地 sqlite 或远端 REST 后端
type BackendConfig struct {
	SQLitePath string `yaml:"sqlite_path"` // sqlite 数据库路径
	RESTURL    string `yaml:"rest_url"`    // REST 后端根地址
}

// WalletConfig 钱包配置（服务端托管签名时使用）
type WalletConfig struct {
	SecretStorePath string `yaml:"secret_store_path"` // badger 密钥库路径
	KeyName         string `yaml:"key_name"`          // 密钥库中的键名
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config 顶层配置
type Config struct {
	Listen  string        `yaml:"listen"` // betd 监听地址
	Oracle  OracleConfig  `yaml:"oracle"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Backend BackendConfig `yaml:"backend"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Log     LogConfig     `yaml:"log"`
}

// Load 从 yaml 文件加载配置并做校验
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Listen: ":8787",
		Oracle: OracleConfig{
			BaseURL:  "https://api.coingecko.com/api/v3",
			AssetID:  "solana",
			QuoteTTL: Duration(30 * time.Second),
		},
		Ledger: LedgerConfig{
			RPCURL:       "https://api.mainnet-beta.solana.com",
			Commitment:   "confirmed",
			PollInterval: Duration(2 * time.Second),
		},
		Backend: BackendConfig{
			SQLitePath: "data/positions.db",
		},
		Wallet: WalletConfig{
			SecretStorePath: "data/secrets",
			KeyName:         "vault-signer",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// applyEnvOverrides 用环境变量覆盖敏感 / 部署相关字段
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOLBET_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("SOLBET_RPC_URL"); v != "" {
		cfg.Ledger.RPCURL = v
	}
	if v := os.Getenv("SOLBET_VAULT_ADDRESS"); v != "" {
		cfg.Ledger.VaultAddress = v
	}
	if v := os.Getenv("SOLBET_ORACLE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("SOLBET_BACKEND_REST_URL"); v != "" {
		cfg.Backend.RESTURL = v
	}
	if v := os.Getenv("SOLBET_SECRET_STORE"); v != "" {
		cfg.Wallet.SecretStorePath = v
	}
}

// Validate 校验配置
// 金库地址必须在启动时就通过解析，避免把资金发往未校验地址
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Ledger.RPCURL) == "" {
		return fmt.Errorf("ledger.rpc_url 不能为空")
	}
	if strings.TrimSpace(c.Ledger.VaultAddress) == "" {
		return fmt.Errorf("ledger.vault_address 不能为空")
	}
	if _, err := ledger.ParseAddress(c.Ledger.VaultAddress); err != nil {
		return fmt.Errorf("ledger.vault_address 不是合法地址: %w", err)
	}
	// 最低可接受确认级别是 confirmed，不允许 processed
	switch c.Ledger.Commitment {
	case "confirmed", "finalized":
	default:
		return fmt.Errorf("ledger.commitment 只能是 confirmed 或 finalized，当前为 %q", c.Ledger.Commitment)
	}
	if c.Ledger.PollInterval <= 0 {
		c.Ledger.PollInterval = Duration(2 * time.Second)
	}
	if strings.TrimSpace(c.Oracle.BaseURL) == "" {
		return fmt.Errorf("oracle.base_url 不能为空")
	}
	if strings.TrimSpace(c.Oracle.AssetID) == "" {
		return fmt.Errorf("oracle.asset_id 不能为空")
	}
	if c.Backend.SQLitePath == "" && c.Backend.RESTURL == "" {
		return fmt.Errorf("backend 需要配置 sqlite_path 或 rest_url 其中之一")
	}
	return nil
}

// LoggerConfig 转换为 pkg/logger 的配置
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		OutputFile: c.Log.OutputFile,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
		Compress:   true,
	}
}
