package recorder

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/betbot/solbet/internal/domain"
)

// SQLiteStore 基于 sqlite 的仓位存储（服务端托管部署）
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite 打开（或创建）仓位数据库并执行迁移
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "创建数据目录失败")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "打开 sqlite 失败")
	}
	// SQLite：单连接更稳定
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close 关闭数据库
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS positions (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  direction TEXT NOT NULL,
  amount_minor INTEGER NOT NULL,
  duration_seconds INTEGER NOT NULL,
  start_at TEXT NOT NULL,
  entry_price_usd REAL NOT NULL,
  transaction_id TEXT NOT NULL UNIQUE,
  resolved INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_positions_owner ON positions(owner);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "迁移 positions 表失败")
		}
	}
	return nil
}

// Record 写入已确认仓位，返回记录 ID
// transaction_id 唯一约束保证同一笔链上交易至多产生一条记录
func (s *SQLiteStore) Record(ctx context.Context, pos *domain.ConfirmedPosition) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO positions (id, owner, direction, amount_minor, duration_seconds, start_at, entry_price_usd, transaction_id, resolved, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		pos.Owner,
		string(pos.Direction),
		int64(pos.AmountMinor),
		pos.DurationSeconds,
		pos.StartAt.UTC().Format(time.RFC3339Nano),
		pos.EntryPriceUSD,
		pos.TransactionID,
		boolToInt(pos.Resolved),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", domain.NewFlowError(domain.KindPersistenceError, "仓位记录写入失败", err)
	}
	return id, nil
}

// List 按持仓人列出记录
func (s *SQLiteStore) List(ctx context.Context, owner string) ([]StoredPosition, error) {
	query := `
SELECT id, owner, direction, amount_minor, duration_seconds, start_at, entry_price_usd, transaction_id, resolved, created_at
FROM positions`
	args := []any{}
	if owner != "" {
		query += ` WHERE owner = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewFlowError(domain.KindPersistenceError, "仓位记录查询失败", err)
	}
	defer rows.Close()

	var out []StoredPosition
	for rows.Next() {
		var (
			p           StoredPosition
			direction   string
			amountMinor int64
			startAt     string
			resolved    int
			createdAt   string
		)
		if err := rows.Scan(&p.RecordID, &p.Owner, &direction, &amountMinor, &p.DurationSeconds,
			&startAt, &p.EntryPriceUSD, &p.TransactionID, &resolved, &createdAt); err != nil {
			return nil, domain.NewFlowError(domain.KindPersistenceError, "仓位记录扫描失败", err)
		}
		p.Direction = domain.Direction(direction)
		p.AmountMinor = uint64(amountMinor)
		p.Resolved = resolved != 0
		if t, err := time.Parse(time.RFC3339Nano, startAt); err == nil {
			p.StartAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			p.CreatedAt = t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewFlowError(domain.KindPersistenceError, "仓位记录遍历失败", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
