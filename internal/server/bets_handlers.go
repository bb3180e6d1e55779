package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/betbot/solbet/internal/betflow"
	"github.com/betbot/solbet/internal/recorder"
)

// createBetRequest 下注请求体
// 协作方 UI 负责钱包连接；服务端托管部署下签名能力由服务持有
type createBetRequest struct {
	Direction string `json:"direction"` // long / short
	Amount    string `json:"amount"`    // 主单位金额（原始字符串）
	Duration  string `json:"duration"`  // 1h / 4h / 1d / 1w / 1m
	ClientID  string `json:"client_id"` // 表单实例标识（可选）
}

type createBetResponse struct {
	BetID string `json:"bet_id"`
}

// handleBetCreate 发起一次下注编排
// 同一表单实例已有进行中的下注时返回 409，对应 UI 禁用提交按钮的约束
func (s *Server) handleBetCreate(c *gin.Context) {
	var req createBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体不是合法 JSON"})
		return
	}

	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		clientID = c.ClientIP()
	}

	betID := uuid.NewString()
	entry, err := s.flows.begin(betID, clientID)
	if err != nil {
		if errors.Is(err, ErrClientBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "已有进行中的下注，请等待其结束"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	orchestrator := s.newFlow()
	input := betflow.PlaceInput{
		BetID:        betID,
		Direction:    req.Direction,
		Amount:       req.Amount,
		DurationCode: req.Duration,
		Signer:       s.signer,
		OnStatus:     entry.publish,
	}

	// 编排在后台进行；一旦提交发生，流程必须跑到确认窗口的终点，
	// 因此不绑定请求上下文
	go func() {
		result, err := orchestrator.Place(context.Background(), input)
		if err != nil {
			result = &betflow.Result{
				BetID:       betID,
				State:       betflow.StateFailed,
				Detail:      err.Error(),
				UserMessage: "下单失败，请稍后重试",
			}
		}
		entry.finish(result)
	}()

	c.JSON(http.StatusAccepted, createBetResponse{BetID: betID})
}

// betStatusResponse 下注状态查询响应
type betStatusResponse struct {
	BetID    string           `json:"bet_id"`
	Statuses []betflow.Status `json:"statuses"`
	Result   *betflow.Result  `json:"result,omitempty"`
}

// handleBetStatus 查询下注状态历史与结果
func (s *Server) handleBetStatus(c *gin.Context) {
	entry, ok := s.flows.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrFlowNotFound.Error()})
		return
	}
	history, result := entry.snapshot()
	c.JSON(http.StatusOK, betStatusResponse{
		BetID:    entry.betID,
		Statuses: history,
		Result:   result,
	})
}

// handlePriceGet 查询当前参考价（走带新鲜度窗口的缓存）
func (s *Server) handlePriceGet(c *gin.Context) {
	quote, err := s.quotes.ReferencePrice(c.Request.Context(), s.cfg.AssetID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "暂时无法获取当前价格"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"asset":      quote.Asset,
		"price_usd":  quote.PriceUSD,
		"fetched_at": quote.FetchedAt,
	})
}

// handlePositionsList 列出已确认仓位
func (s *Server) handlePositionsList(c *gin.Context) {
	positions, err := s.store.List(c.Request.Context(), c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if positions == nil {
		positions = []recorder.StoredPosition{}
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}
