package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taoyao-code/dsp-bridge/internal/backend"
	cfgpkg "github.com/taoyao-code/dsp-bridge/internal/config"
	"github.com/taoyao-code/dsp-bridge/internal/metrics"
)

// Server HTTP 便捷接口：浏览器控制面板等远端消费者通过 GET /read、/write
// 访问与 TCP 桥完全相同的后端契约。
type Server struct {
	srv *http.Server
}

// New 创建并配置 Gin + HTTP Server
func New(
	cfg cfgpkg.HTTPConfig,
	metricsPath string,
	metricsHandler http.Handler,
	be backend.Backend,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) *Server {
	r := NewRouter(metricsPath, metricsHandler, be, appm, logger)
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{srv: srv}
}

// NewRouter 组装路由（独立出来便于 httptest 直接驱动）
func NewRouter(
	metricsPath string,
	metricsHandler http.Handler,
	be backend.Backend,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), CORS(), RequestID())

	h := NewBridgeHandler(be, appm, logger)

	// 健康检查：原生固件同样在根路径返回 "ok"
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/read", h.Read)
	r.GET("/write", h.Write)

	if metricsHandler != nil {
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(metricsHandler))
	}
	return r
}

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// CORS 放开跨域：控制面板直接从浏览器访问本接口
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestID 为每个请求标记 X-Request-ID，便于日志串联
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}
