package recorder

import (
	"context"
	"time"

	"github.com/betbot/solbet/internal/domain"
)

// StoredPosition 已落库的仓位记录
type StoredPosition struct {
	RecordID string `json:"record_id"`
	domain.ConfirmedPosition
	CreatedAt time.Time `json:"created_at"`
}

// Recorder 仓位记录后端
// Record 只允许在转账达到确认级别之后调用；失败映射为 PersistenceError，
// 该失败必须与交易失败区分展示（资金已转移，属于对账场景）
type Recorder interface {
	// Record 持久化已确认仓位，返回记录 ID
	Record(ctx context.Context, pos *domain.ConfirmedPosition) (string, error)
	// List 按持仓人列出记录（owner 为空列出全部）
	List(ctx context.Context, owner string) ([]StoredPosition, error)
}
