package oracle

import (
	"context"
	"time"

	"github.com/betbot/solbet/internal/domain"
	"github.com/betbot/solbet/pkg/cache"
)

// PriceSource 价格来源接口（便于测试注入）
type PriceSource interface {
	ReferencePrice(ctx context.Context, assetID string) (*domain.PriceQuote, error)
}

// QuoteCache 带新鲜度窗口的报价缓存
// 按资产 ID 缓存，供详情页等协作方复用；下单编排永远直接取新价
type QuoteCache struct {
	source PriceSource
	cache  *cache.InMemoryCache[string, *domain.PriceQuote]
	ttl    time.Duration
}

// NewQuoteCache 创建报价缓存
func NewQuoteCache(source PriceSource, ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &QuoteCache{
		source: source,
		cache:  cache.NewInMemoryCache[string, *domain.PriceQuote](ttl),
		ttl:    ttl,
	}
}

// TTL 返回声明的新鲜度窗口
func (q *QuoteCache) TTL() time.Duration {
	return q.ttl
}

// ReferencePrice 取报价：窗口内命中缓存，否则回源并回填
func (q *QuoteCache) ReferencePrice(ctx context.Context, assetID string) (*domain.PriceQuote, error) {
	if quote, ok := q.cache.Get(assetID); ok {
		return quote, nil
	}
	quote, err := q.source.ReferencePrice(ctx, assetID)
	if err != nil {
		return nil, err
	}
	q.cache.Set(assetID, quote, q.ttl)
	return quote, nil
}

// Invalidate 删除某资产的缓存报价
func (q *QuoteCache) Invalidate(assetID string) {
	q.cache.Delete(assetID)
}
