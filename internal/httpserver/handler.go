package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/dsp-bridge/internal/backend"
	"github.com/taoyao-code/dsp-bridge/internal/metrics"
)

// BridgeHandler 寄存器读写的 HTTP 处理器
type BridgeHandler struct {
	be     backend.Backend
	appm   *metrics.AppMetrics
	logger *zap.Logger
}

// NewBridgeHandler 创建处理器
func NewBridgeHandler(be backend.Backend, appm *metrics.AppMetrics, logger *zap.Logger) *BridgeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BridgeHandler{be: be, appm: appm, logger: logger}
}

// Read GET /read?addr=&len=
// addr、len 接受 0x 前缀十六进制或十进制字面量
func (h *BridgeHandler) Read(c *gin.Context) {
	addr, err := parseAddr(c.Query("addr"))
	if err != nil {
		h.count("read", "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bad addr: %v", err)})
		return
	}
	n, err := parseLen(c.Query("len"))
	if err != nil {
		h.count("read", "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bad len: %v", err)})
		return
	}

	h.logger.Info("http read",
		zap.String("addr", fmt.Sprintf("0x%04x", addr)), zap.Int("len", n))

	data, err := h.be.Read(c.Request.Context(), addr, n)
	if err != nil {
		h.count("read", "backend_error")
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to read register: %v", err)})
		return
	}
	h.count("read", "ok")
	c.JSON(http.StatusOK, gin.H{
		"addr": fmt.Sprintf("0x%04x", addr),
		"len":  n,
		"data": hexBytes(data),
	})
}

// Write GET /write?addr=&data=
// data 为连续十六进制串，两位一字节，末尾落单的半字节忽略
func (h *BridgeHandler) Write(c *gin.Context) {
	addr, err := parseAddr(c.Query("addr"))
	if err != nil {
		h.count("write", "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bad addr: %v", err)})
		return
	}
	data, err := parseHexData(c.Query("data"))
	if err != nil {
		h.count("write", "bad_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("bad data: %v", err)})
		return
	}

	h.logger.Info("http write",
		zap.String("addr", fmt.Sprintf("0x%04x", addr)), zap.Int("len", len(data)))

	if err := h.be.Write(c.Request.Context(), addr, data); err != nil {
		h.count("write", "backend_error")
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to write register: %v", err)})
		return
	}
	h.count("write", "ok")
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"addr":         fmt.Sprintf("0x%04x", addr),
		"data_written": hexBytes(data),
		"length":       len(data),
	})
}

func (h *BridgeHandler) count(op, result string) {
	if h.appm != nil {
		h.appm.HTTPBridgeTotal.WithLabelValues(op, result).Inc()
	}
}

func hexBytes(data []byte) []string {
	out := make([]string, len(data))
	for i, b := range data {
		out[i] = fmt.Sprintf("0x%02x", b)
	}
	return out
}
