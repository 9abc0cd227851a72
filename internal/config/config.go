package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// TCPConfig TCP 桥接服务配置。ReadTimeout 为 0 表示按协议语义阻塞等待，
// 不设读截止时间。
type TCPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	MaxConnections int           `mapstructure:"maxConnections"`
	AcceptRate     int           `mapstructure:"acceptRate"`
	AcceptBurst    int           `mapstructure:"acceptBurst"`
}

// ProtocolConfig 协议解码配置
type ProtocolConfig struct {
	// MaxBuffer 单连接重组缓冲上限，0 取默认（一个 ADAU1452 分区传输）
	MaxBuffer int `mapstructure:"maxBuffer"`
	// ResyncPolicy 未知命令字节的重同步策略：drop-byte | drop-buffer
	ResyncPolicy string `mapstructure:"resyncPolicy"`
	// ConsumeReadPadding 吞掉读命令 totalLen 覆盖的尾随零填充
	ConsumeReadPadding bool `mapstructure:"consumeReadPadding"`
}

// HTTPConfig HTTP 便捷接口配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// I2CConfig DSP 寄存器总线配置
type I2CConfig struct {
	// Bus periph.io 总线名（空串取系统默认总线）
	Bus string `mapstructure:"bus"`
	// DeviceAddr DSP 的 I2C 总线地址（区别于协议中的 chip address）
	DeviceAddr int `mapstructure:"deviceAddr"`
	// ScanOnStart 启动时扫描总线辅助排障
	ScanOnStart bool `mapstructure:"scanOnStart"`
}

// BridgeConfig 远端 HTTP 桥后端配置
type BridgeConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BreakerConfig 总线熔断配置
type BreakerConfig struct {
	Enable    bool          `mapstructure:"enable"`
	Threshold int           `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

// BackendConfig 后端选择与各实现参数。Mode: i2c | mock | http
type BackendConfig struct {
	Mode    string        `mapstructure:"mode"`
	Fill    int           `mapstructure:"fill"` // mock 读填充值
	I2C     I2CConfig     `mapstructure:"i2c"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	TCP      TCPConfig      `mapstructure:"tcp"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// Load 从 YAML 文件与环境变量加载配置。
// path 为空时回退到 ./configs/example.yaml；环境变量前缀 DSP_，
// 点号替换为下划线，可覆盖任意键。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("DSP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dsp-bridge")
	v.SetDefault("app.env", "dev")

	// SigmaStudio 默认连 8086
	v.SetDefault("tcp.addr", ":8086")
	v.SetDefault("tcp.readTimeout", "0s")
	v.SetDefault("tcp.writeTimeout", "10s")
	v.SetDefault("tcp.maxConnections", 64)
	v.SetDefault("tcp.acceptRate", 100)
	v.SetDefault("tcp.acceptBurst", 200)

	v.SetDefault("protocol.maxBuffer", 0)
	v.SetDefault("protocol.resyncPolicy", "drop-byte")
	v.SetDefault("protocol.consumeReadPadding", true)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("backend.mode", "mock")
	v.SetDefault("backend.fill", 0x0C)
	v.SetDefault("backend.i2c.bus", "")
	v.SetDefault("backend.i2c.deviceAddr", 0x3B)
	v.SetDefault("backend.i2c.scanOnStart", true)
	v.SetDefault("backend.bridge.baseURL", "http://127.0.0.1:8080")
	v.SetDefault("backend.bridge.timeout", "10s")
	v.SetDefault("backend.breaker.enable", false)
	v.SetDefault("backend.breaker.threshold", 5)
	v.SetDefault("backend.breaker.cooldown", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/dsp-bridge.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
