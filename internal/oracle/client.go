package oracle

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/betbot/solbet/internal/domain"
)

// Client 参考价格客户端
// 纯请求/响应，无内部状态；不做内部重试，由调用方决定
type Client struct {
	client *resty.Client
}

// NewClient 创建价格客户端
// baseURL 形如 https://api.coingecko.com/api/v3
func NewClient(baseURL string) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "application/json")
	return &Client{client: client}
}

// ReferencePrice 获取资产当前 USD 参考价
// 非 2xx -> OracleUnavailable；价格字段缺失或非数字 -> OracleMalformedResponse
// 价格不可用时绝不回退到陈旧或伪造价格
func (c *Client) ReferencePrice(ctx context.Context, assetID string) (*domain.PriceQuote, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("ids", assetID).
		SetQueryParam("vs_currencies", "usd").
		Get("/simple/price")
	if err != nil {
		return nil, domain.NewFlowError(domain.KindOracleUnavailable,
			"价格源请求失败", err)
	}
	if !resp.IsSuccess() {
		return nil, domain.NewFlowError(domain.KindOracleUnavailable,
			"价格源返回 "+resp.Status(), nil)
	}

	// 期望形如 {"solana": {"usd": 150.25}}；其他任何形状都视为异常响应
	var payload map[string]map[string]json.Number
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, domain.NewFlowError(domain.KindOracleMalformedResponse,
			"价格源响应不是预期的 JSON 结构", err)
	}
	entry, ok := payload[assetID]
	if !ok {
		return nil, domain.NewFlowError(domain.KindOracleMalformedResponse,
			"价格源响应缺少资产 "+assetID, nil)
	}
	raw, ok := entry["usd"]
	if !ok {
		return nil, domain.NewFlowError(domain.KindOracleMalformedResponse,
			"价格源响应缺少 usd 字段", nil)
	}
	price, err := raw.Float64()
	if err != nil {
		return nil, domain.NewFlowError(domain.KindOracleMalformedResponse,
			"价格字段不是数字: "+raw.String(), err)
	}
	if price <= 0 {
		return nil, domain.NewFlowError(domain.KindOracleMalformedResponse,
			"价格字段非正数: "+raw.String(), nil)
	}

	return &domain.PriceQuote{
		Asset:     assetID,
		PriceUSD:  price,
		FetchedAt: time.Now(),
	}, nil
}
