package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/dsp-bridge/internal/backend"
	cfgpkg "github.com/taoyao-code/dsp-bridge/internal/config"
	"github.com/taoyao-code/dsp-bridge/internal/gateway"
	"github.com/taoyao-code/dsp-bridge/internal/httpserver"
	"github.com/taoyao-code/dsp-bridge/internal/logging"
	"github.com/taoyao-code/dsp-bridge/internal/metrics"
	"github.com/taoyao-code/dsp-bridge/internal/tcpserver"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath)
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 3) 指标
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	metricsHandler := metrics.Handler(reg)
	if !cfg.Metrics.Enable {
		metricsHandler = nil
	}

	// 4) 寄存器后端（全局唯一实例，内部互斥即全系统唯一同步点）
	be, cleanup, err := buildBackend(cfg.Backend, log)
	if err != nil {
		log.Fatal("backend init error", zap.Error(err))
	}
	defer cleanup()

	// 5) HTTP 便捷接口
	httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, be, appm, log)

	// 6) TCP 桥
	tcpSrv := tcpserver.New(cfg.TCP, log)
	tcpSrv.SetConnHandler(gateway.NewConnHandler(be, cfg.Protocol, appm, log))
	tcpSrv.SetMetricsCallbacks(
		func() { appm.TCPAccepted.Inc() },
		func(n int) { appm.TCPBytesReceived.Add(float64(n)) },
	)

	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	if err := tcpSrv.Start(); err != nil {
		log.Fatal("tcp server start error", zap.Error(err))
	}

	// 信号处理，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	_ = tcpSrv.Shutdown(ctx)
}

// buildBackend 按配置组装后端，可选熔断包装
func buildBackend(cfg cfgpkg.BackendConfig, log *zap.Logger) (backend.Backend, func(), error) {
	var (
		be      backend.Backend
		cleanup = func() {}
	)
	switch cfg.Mode {
	case "i2c":
		i2cBe, err := backend.NewI2CBackend(cfg.I2C, log)
		if err != nil {
			return nil, nil, err
		}
		be = i2cBe
		cleanup = func() { _ = i2cBe.Close() }
	case "http":
		be = backend.NewHTTPBridgeBackend(cfg.Bridge, log)
	case "mock", "":
		be = backend.NewMockBackend(byte(cfg.Fill), log)
	default:
		return nil, nil, fmt.Errorf("unknown backend mode %q", cfg.Mode)
	}

	if cfg.Breaker.Enable {
		be = backend.NewBreakerBackend(be, cfg.Breaker.Threshold, cfg.Breaker.Cooldown, log)
	}
	return be, cleanup, nil
}
