// Package gateway 把 TCP 连接、协议解码器与寄存器后端接到一起：
// 每连接一个解码器，命令按到达顺序派发，响应同步写回后才处理下一条。
package gateway

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/dsp-bridge/internal/backend"
	cfgpkg "github.com/taoyao-code/dsp-bridge/internal/config"
	"github.com/taoyao-code/dsp-bridge/internal/metrics"
	"github.com/taoyao-code/dsp-bridge/internal/protocol/sigmatcp"
	"github.com/taoyao-code/dsp-bridge/internal/tcpserver"
)

// DecoderOptions 把协议配置翻译成解码器选项
func DecoderOptions(cfg cfgpkg.ProtocolConfig) []sigmatcp.DecoderOption {
	opts := []sigmatcp.DecoderOption{
		sigmatcp.WithReadPadding(cfg.ConsumeReadPadding),
	}
	if cfg.MaxBuffer > 0 {
		opts = append(opts, sigmatcp.WithMaxBuffer(cfg.MaxBuffer))
	}
	if cfg.ResyncPolicy == "drop-buffer" {
		opts = append(opts, sigmatcp.WithResyncPolicy(sigmatcp.ResyncDropBuffer))
	}
	return opts
}

// NewConnHandler 构建 TCP 连接处理器。be 为全局共享后端，
// 互斥由后端内部保证，这里不做任何额外同步。
func NewConnHandler(
	be backend.Backend,
	cfg cfgpkg.ProtocolConfig,
	appm *metrics.AppMetrics,
	logger *zap.Logger,
) func(*tcpserver.ConnContext) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(cc *tcpserver.ConnContext) {
		dec := sigmatcp.NewDecoder(DecoderOptions(cfg)...)
		log := logger.With(
			zap.Uint64("conn_id", cc.ID()),
			zap.String("remote_addr", cc.RemoteAddr().String()),
		)
		cc.SetOnRead(func(p []byte) {
			cmds, err := dec.Feed(p)
			if err != nil {
				// 缓冲被清空重置，连接继续服务
				log.Warn("stream decoder reset", zap.Error(err))
				if appm != nil {
					appm.ParseTotal.WithLabelValues("overflow").Inc()
				}
			}
			for _, cmd := range cmds {
				resp := Dispatch(context.Background(), be, cmd, log, appm)
				if resp == nil {
					continue
				}
				if err := cc.Write(resp.Encode()); err != nil {
					log.Warn("response write failed", zap.Error(err))
					cc.Close()
					return
				}
			}
		})
	}
}

// Dispatch 执行一条已解码命令并构造响应。后端故障不终止连接：
// 记日志、响应带失败标志，该命令视为已消费。UnknownCommand 无响应
// （协议没有原生错误帧），只留诊断日志。
func Dispatch(
	ctx context.Context,
	be backend.Backend,
	cmd sigmatcp.Command,
	log *zap.Logger,
	appm *metrics.AppMetrics,
) *sigmatcp.Response {
	switch c := cmd.(type) {
	case sigmatcp.ReadCommand:
		if appm != nil {
			appm.ParseTotal.WithLabelValues("ok").Inc()
			appm.CommandTotal.WithLabelValues("read").Inc()
		}
		log.Debug("read command",
			zap.String("param_addr", fmt.Sprintf("0x%04x", c.ParamAddr)),
			zap.Uint32("data_len", c.DataLen),
		)
		data, err := be.Read(ctx, c.ParamAddr, int(c.DataLen))
		if err != nil {
			log.Error("backend read failed",
				zap.String("param_addr", fmt.Sprintf("0x%04x", c.ParamAddr)),
				zap.Error(err),
			)
			if appm != nil {
				appm.BackendErrTotal.WithLabelValues("read").Inc()
			}
			// 尽力而为响应：失败标志 + 零填充，保持对端成帧不断链
			return sigmatcp.NewErrorResponse(c.ChipAddr, c.DataLen, c.ParamAddr, make([]byte, c.DataLen))
		}
		return sigmatcp.NewReadResponse(c.ChipAddr, c.DataLen, c.ParamAddr, data)

	case sigmatcp.WriteCommand:
		if appm != nil {
			appm.ParseTotal.WithLabelValues("ok").Inc()
			appm.CommandTotal.WithLabelValues("write").Inc()
		}
		log.Debug("write command",
			zap.String("param_addr", fmt.Sprintf("0x%04x", c.ParamAddr)),
			zap.Uint32("data_len", c.DataLen),
			zap.Uint8("safeload", c.Safeload),
			zap.Uint8("channel", c.Channel),
		)
		resp := sigmatcp.NewWriteResponse(c.ChipAddr, c.DataLen, c.ParamAddr)
		if err := be.Write(ctx, c.ParamAddr, c.Data); err != nil {
			log.Error("backend write failed",
				zap.String("param_addr", fmt.Sprintf("0x%04x", c.ParamAddr)),
				zap.Error(err),
			)
			if appm != nil {
				appm.BackendErrTotal.WithLabelValues("write").Inc()
			}
			resp.Success = 1
		}
		return resp

	case sigmatcp.UnknownCommand:
		log.Error("unknown command", zap.String("opcode", fmt.Sprintf("0x%02x", c.Opcode)))
		if appm != nil {
			appm.ParseTotal.WithLabelValues("unknown").Inc()
			appm.ResyncTotal.Inc()
		}
		return nil
	}
	return nil
}
