package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction 持仓方向
type Direction string

const (
	DirectionLong  Direction = "long"  // 做多
	DirectionShort Direction = "short" // 做空
)

// ParseDirection 解析持仓方向字符串
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return DirectionLong, true
	case "short":
		return DirectionShort, true
	default:
		return "", false
	}
}

// durationTable 合约周期 -> 秒数的固定映射表
// 注意：1m 是固定的 30 天近似值，不是日历月
var durationTable = map[string]int64{
	"1h": 3600,
	"4h": 14400,
	"1d": 86400,
	"1w": 604800,
	"1m": 2592000,
}

// DurationSeconds 把周期代码映射为秒数
// 未知代码返回 (0, false)，调用方必须拒绝，不能当作 0 继续
func DurationSeconds(code string) (int64, bool) {
	secs, ok := durationTable[strings.ToLower(strings.TrimSpace(code))]
	return secs, ok
}

// DurationCodes 返回所有合法的周期代码（用于校验提示）
func DurationCodes() []string {
	return []string{"1h", "4h", "1d", "1w", "1m"}
}

// BetRequest 用户下注请求
// 从 UI 原始输入构造，校验通过后不可变更
type BetRequest struct {
	Direction       Direction       // 持仓方向
	AmountMajor     decimal.Decimal // 主单位金额（必须 > 0）
	DurationCode    string          // 周期代码（1h/4h/1d/1w/1m）
	DurationSeconds int64           // 周期秒数（由固定表映射）
}

// ParseBetRequest 解析并校验用户输入
// 所有失败都映射为 InvalidInput，且保证在任何网络调用之前发生
func ParseBetRequest(direction, amount, durationCode string) (*BetRequest, error) {
	dir, ok := ParseDirection(direction)
	if !ok {
		return nil, NewFlowError(KindInvalidInput, "unknown direction: "+direction, nil)
	}

	raw := strings.TrimSpace(amount)
	if raw == "" {
		return nil, NewFlowError(KindInvalidInput, "amount is empty", nil)
	}
	amt, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, NewFlowError(KindInvalidInput, "amount is not a number: "+raw, err)
	}
	if amt.Sign() <= 0 {
		return nil, NewFlowError(KindInvalidInput, "amount must be positive: "+raw, nil)
	}

	secs, ok := DurationSeconds(durationCode)
	if !ok {
		return nil, NewFlowError(KindInvalidInput, "unknown duration code: "+durationCode, nil)
	}

	return &BetRequest{
		Direction:       dir,
		AmountMajor:     amt,
		DurationCode:    strings.ToLower(strings.TrimSpace(durationCode)),
		DurationSeconds: secs,
	}, nil
}

// PriceQuote 参考价格快照（不落库，仅用于标记入场价）
type PriceQuote struct {
	Asset     string    // 资产 ID
	PriceUSD  float64   // USD 价格
	FetchedAt time.Time // 获取时间
}

// ConfirmedPosition 已确认仓位（唯一的持久化记录）
// 只有在转账达到确认级别之后才允许写入
type ConfirmedPosition struct {
	Owner           string    `json:"owner"`             // 持仓人地址
	Direction       Direction `json:"direction"`         // 方向
	AmountMinor     uint64    `json:"amount_minor"`      // 最小单位金额
	DurationSeconds int64     `json:"duration_seconds"`  // 周期秒数
	StartAt         time.Time `json:"start_at"`          // 开仓时间
	EntryPriceUSD   float64   `json:"entry_price_usd"`   // 入场价格（USD）
	TransactionID   string    `json:"transaction_id"`    // 链上交易 ID
	Resolved        bool      `json:"resolved"`          // 是否已结算（由结算流程维护）
}
