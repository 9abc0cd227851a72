package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 业务指标
type AppMetrics struct {
	TCPAccepted      prometheus.Counter
	TCPBytesReceived prometheus.Counter
	ParseTotal       *prometheus.CounterVec // labels: result=ok|unknown|overflow
	CommandTotal     *prometheus.CounterVec // labels: op=read|write
	BackendErrTotal  *prometheus.CounterVec // labels: op=read|write
	ResyncTotal      prometheus.Counter     // 未知opcode触发的重同步次数
	HTTPBridgeTotal  *prometheus.CounterVec // labels: op, result
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		TCPAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_accept_total",
			Help: "Total accepted TCP connections.",
		}),
		TCPBytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tcp_bytes_received_total",
			Help: "Total bytes received over TCP.",
		}),
		ParseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatcp_parse_total",
			Help: "Protocol parse outcomes.",
		}, []string{"result"}),
		CommandTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigmatcp_command_total",
			Help: "Dispatched register commands by operation.",
		}, []string{"op"}),
		BackendErrTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_error_total",
			Help: "Backend transaction failures by operation.",
		}, []string{"op"}),
		ResyncTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigmatcp_resync_total",
			Help: "Stream resynchronizations after an unknown opcode.",
		}),
		HTTPBridgeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_bridge_request_total",
			Help: "HTTP convenience API requests.",
		}, []string{"op", "result"}),
	}
	reg.MustRegister(
		m.TCPAccepted, m.TCPBytesReceived, m.ParseTotal, m.CommandTotal,
		m.BackendErrTotal, m.ResyncTotal, m.HTTPBridgeTotal,
	)
	return m
}
