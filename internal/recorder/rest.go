package recorder

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/betbot/solbet/internal/domain"
)

// RESTRecorder 远端 REST 后端的仓位记录实现
// 后端契约：POST /positions 接收 ConfirmedPosition 字段，返回 {"record_id": "..."}
type RESTRecorder struct {
	client *resty.Client
}

// NewRESTRecorder 创建 REST 记录器
func NewRESTRecorder(baseURL string) *RESTRecorder {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &RESTRecorder{client: client}
}

type restRecordResponse struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}

// Record 提交仓位记录
func (r *RESTRecorder) Record(ctx context.Context, pos *domain.ConfirmedPosition) (string, error) {
	var result restRecordResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(pos).
		SetResult(&result).
		SetError(&result).
		Post("/positions")
	if err != nil {
		return "", domain.NewFlowError(domain.KindPersistenceError, "仓位后端请求失败", err)
	}
	if !resp.IsSuccess() {
		detail := result.Error
		if detail == "" {
			detail = resp.Status()
		}
		return "", domain.NewFlowError(domain.KindPersistenceError, "仓位后端返回错误: "+detail, nil)
	}
	if result.RecordID == "" {
		return "", domain.NewFlowError(domain.KindPersistenceError, "仓位后端未返回记录 ID", nil)
	}
	return result.RecordID, nil
}

// List 查询仓位记录
func (r *RESTRecorder) List(ctx context.Context, owner string) ([]StoredPosition, error) {
	var result []StoredPosition
	req := r.client.R().SetContext(ctx).SetResult(&result)
	if owner != "" {
		req.SetQueryParam("owner", owner)
	}
	resp, err := req.Get("/positions")
	if err != nil {
		return nil, domain.NewFlowError(domain.KindPersistenceError, "仓位后端请求失败", err)
	}
	if !resp.IsSuccess() {
		return nil, domain.NewFlowError(domain.KindPersistenceError, "仓位后端返回错误: "+resp.Status(), nil)
	}
	return result, nil
}
