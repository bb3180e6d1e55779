package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/solbet/internal/betflow"
	"github.com/betbot/solbet/internal/oracle"
	"github.com/betbot/solbet/internal/recorder"
	"github.com/betbot/solbet/internal/wallet"
	"github.com/betbot/solbet/pkg/logger"
)

// Config 服务配置
type Config struct {
	Listen  string // 监听地址
	AssetID string // 交易资产 ID
}

// OrchestratorFactory 每次下注创建一个编排器实例
// 编排器自身保证单实例至多一个进行中的流程，表单级别的限制在注册表处完成
type OrchestratorFactory func() *betflow.Orchestrator

// Server 面向协作方 UI 的 HTTP 服务
type Server struct {
	cfg     Config
	newFlow OrchestratorFactory
	signer  wallet.Signer
	store   recorder.Recorder
	quotes  oracle.PriceSource // 详情页共享的带缓存报价源
	flows   *FlowRegistry
	log     *logrus.Entry
}

// New 创建服务
func New(cfg Config, factory OrchestratorFactory, signer wallet.Signer, store recorder.Recorder, quotes oracle.PriceSource) *Server {
	return &Server{
		cfg:     cfg,
		newFlow: factory,
		signer:  signer,
		store:   store,
		quotes:  quotes,
		flows:   NewFlowRegistry(),
		log:     logger.WithField("component", "server"),
	}
}

// Router 构建 gin 路由
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	{
		api.POST("/bets", s.handleBetCreate)
		api.GET("/bets/:id", s.handleBetStatus)
		api.GET("/bets/:id/stream", s.handleBetStream)
		api.GET("/positions", s.handlePositionsList)
		api.GET("/price", s.handlePriceGet)
	}
	return r
}

// Run 启动服务直到 ctx 结束
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("监听 %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestLog 请求日志中间件
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
			"cost":   time.Since(start).String(),
		}).Debug("request")
	}
}
