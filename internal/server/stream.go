package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// upgrader WebSocket 升级器
// 状态流只向 UI 推送，来源校验交给前置网关
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait = 10 * time.Second
	pingEvery = 30 * time.Second
)

// streamFrame 推送给 UI 的单帧
type streamFrame struct {
	Type   string `json:"type"` // status / result
	Status any    `json:"status,omitempty"`
	Result any    `json:"result,omitempty"`
}

// handleBetStream 按 WebSocket 推送状态流
// 先补发历史状态，再实时推送后续转移，终态后附带最终结果并关闭
func (s *Server) handleBetStream(c *gin.Context) {
	entry, ok := s.flows.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrFlowNotFound.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnf("WS 升级失败: %v", err)
		return
	}
	defer conn.Close()

	history, updates, cancel := entry.subscribe()
	defer cancel()

	writeFrame := func(frame streamFrame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(frame)
	}

	for _, status := range history {
		if err := writeFrame(streamFrame{Type: "status", Status: status}); err != nil {
			return
		}
	}

	// 已终止的流程直接补结果
	if updates == nil {
		_, result := entry.snapshot()
		_ = writeFrame(streamFrame{Type: "result", Result: result})
		return
	}

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case status, open := <-updates:
			if !open {
				_, result := entry.snapshot()
				_ = writeFrame(streamFrame{Type: "result", Result: result})
				return
			}
			if err := writeFrame(streamFrame{Type: "status", Status: status}); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
