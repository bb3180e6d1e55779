package server

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/solbet/internal/betflow"
)

// TestRegistryClientBusy 同一表单实例至多一个进行中的下注
func TestRegistryClientBusy(t *testing.T) {
	reg := NewFlowRegistry()

	entry, err := reg.begin("bet-1", "client-1")
	require.NoError(t, err)

	_, err = reg.begin("bet-2", "client-1")
	assert.True(t, errors.Is(err, ErrClientBusy), "进行中时应拒绝同一 client 的新下注")

	// 其他 client 不受影响
	_, err = reg.begin("bet-3", "client-2")
	assert.NoError(t, err)

	// 结束后可以再次下注
	entry.finish(&betflow.Result{BetID: "bet-1", State: betflow.StateFailed})
	_, err = reg.begin("bet-4", "client-1")
	assert.NoError(t, err)
}

// TestRegistryGet 按下注 ID 查询
func TestRegistryGet(t *testing.T) {
	reg := NewFlowRegistry()
	_, err := reg.begin("bet-1", "client-1")
	require.NoError(t, err)

	entry, ok := reg.get("bet-1")
	require.True(t, ok)
	assert.Equal(t, "bet-1", entry.betID)

	_, ok = reg.get("missing")
	assert.False(t, ok)
}

// TestFlowEntryPublishSubscribe 状态历史回放与实时订阅
func TestFlowEntryPublishSubscribe(t *testing.T) {
	reg := NewFlowRegistry()
	entry, err := reg.begin("bet-1", "client-1")
	require.NoError(t, err)

	first := betflow.Status{State: betflow.StateValidatingInput, At: time.Now()}
	entry.publish(first)

	history, ch, cancel := entry.subscribe()
	defer cancel()
	require.Len(t, history, 1, "订阅时应取得已发生的历史")
	assert.Equal(t, betflow.StateValidatingInput, history[0].State)

	second := betflow.Status{State: betflow.StateFetchingPrice, At: time.Now()}
	entry.publish(second)
	select {
	case got := <-ch:
		assert.Equal(t, betflow.StateFetchingPrice, got.State)
	case <-time.After(time.Second):
		t.Fatal("订阅通道未收到状态")
	}

	// finish 后通道关闭
	entry.finish(&betflow.Result{BetID: "bet-1", State: betflow.StateSucceeded})
	select {
	case _, open := <-ch:
		assert.False(t, open, "结束后订阅通道应关闭")
	case <-time.After(time.Second):
		t.Fatal("订阅通道未关闭")
	}

	// 终止后的订阅只拿历史，不再有通道
	history, ch, cancel = entry.subscribe()
	defer cancel()
	assert.Len(t, history, 2)
	assert.Nil(t, ch)
}
