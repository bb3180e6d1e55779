package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/solbet/internal/domain"
	"github.com/betbot/solbet/pkg/logger"
)

// Commitment 确认级别
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// commitmentRank 确认级别的强度排序
var commitmentRank = map[Commitment]int{
	CommitmentProcessed: 1,
	CommitmentConfirmed: 2,
	CommitmentFinalized: 3,
}

// AtLeast 判断 got 是否达到 required 级别
func (c Commitment) AtLeast(required Commitment) bool {
	return commitmentRank[c] >= commitmentRank[required] && commitmentRank[c] > 0
}

// submitMaxAttempts 提交交易的传输层重试上限
// 只针对传输层瞬时错误重试，绝不重新签名或重建交易
const submitMaxAttempts = 3

// RPCClient 账本节点 JSON-RPC 客户端
type RPCClient struct {
	client     *resty.Client
	commitment Commitment
}

// NewRPCClient 创建 RPC 客户端
func NewRPCClient(rpcURL string, commitment Commitment) *RPCClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(rpcURL, "/")).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &RPCClient{client: client, commitment: commitment}
}

// Commitment 返回配置的确认级别
func (c *RPCClient) Commitment() Commitment {
	return c.commitment
}

// rpcRequest JSON-RPC 请求体
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// rpcError JSON-RPC 错误体
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// rpcResponse JSON-RPC 响应体
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call 发起一次 JSON-RPC 调用
func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	var rpcResp rpcResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}).
		SetResult(&rpcResp).
		Post("")
	if err != nil {
		return errors.Wrapf(err, "rpc %s 请求失败", method)
	}
	if !resp.IsSuccess() {
		return errors.Errorf("rpc %s 非 2xx 响应: %s", method, resp.Status())
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return errors.Wrapf(err, "rpc %s 结果解析失败", method)
		}
	}
	return nil
}

// LatestCheckpoint 获取最近的检查点及其有效窗口
// 必须在构建交易前即时调用
func (c *RPCClient) LatestCheckpoint(ctx context.Context) (domain.Checkpoint, error) {
	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	err := c.call(ctx, "getLatestBlockhash",
		[]any{map[string]any{"commitment": string(c.commitment)}}, &result)
	if err != nil {
		return domain.Checkpoint{}, err
	}
	return domain.Checkpoint{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

// BlockHeight 获取当前区块高度（用于判断检查点是否过期）
func (c *RPCClient) BlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.call(ctx, "getBlockHeight",
		[]any{map[string]any{"commitment": string(c.commitment)}}, &height)
	return height, err
}

// SubmitTransaction 提交已签名交易，返回交易签名
// 传输层瞬时错误最多尝试 submitMaxAttempts 次；节点明确拒绝不重试
func (c *RPCClient) SubmitTransaction(ctx context.Context, signedBase64 string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= submitMaxAttempts; attempt++ {
		var signature string
		err := c.call(ctx, "sendTransaction",
			[]any{signedBase64, map[string]any{"encoding": "base64"}}, &signature)
		if err == nil {
			return signature, nil
		}

		// 节点级拒绝（余额不足、交易格式错误等）直接上抛，不属于瞬时错误
		var nodeErr *rpcError
		if errors.As(err, &nodeErr) {
			return "", domain.NewFlowError(domain.KindSubmissionFailed, nodeErr.Message, nodeErr)
		}

		lastErr = err
		logger.Warnf("[ledger] 提交交易传输失败（第 %d/%d 次）: %v", attempt, submitMaxAttempts, err)
		select {
		case <-ctx.Done():
			return "", domain.NewFlowError(domain.KindSubmissionFailed, "提交被取消", ctx.Err())
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return "", domain.NewFlowError(domain.KindSubmissionFailed, "提交交易重试次数耗尽", lastErr)
}

// SignatureStatus 单笔交易的确认状态
type SignatureStatus struct {
	Found              bool       // 节点是否已知该签名
	ConfirmationStatus Commitment // 当前确认级别
	Err                string     // 链上错误（为空表示执行成功）
}

// GetSignatureStatus 查询交易确认状态
func (c *RPCClient) GetSignatureStatus(ctx context.Context, signature string) (SignatureStatus, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	err := c.call(ctx, "getSignatureStatuses",
		[]any{[]string{signature}, map[string]any{"searchTransactionHistory": true}}, &result)
	if err != nil {
		return SignatureStatus{}, err
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return SignatureStatus{Found: false}, nil
	}

	entry := result.Value[0]
	status := SignatureStatus{
		Found:              true,
		ConfirmationStatus: Commitment(entry.ConfirmationStatus),
	}
	if len(entry.Err) > 0 && string(entry.Err) != "null" {
		status.Err = string(entry.Err)
	}
	return status, nil
}
