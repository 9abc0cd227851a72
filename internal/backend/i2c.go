package backend

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	cfgpkg "github.com/taoyao-code/dsp-bridge/internal/config"
)

// I2CBackend DSP 寄存器总线后端。
// 总线无并发能力，所有事务由内部互斥锁全程串行：一次读的
// 指针写入与数据读取之间不允许任何其它事务插入。
type I2CBackend struct {
	mu     sync.Mutex
	bus    i2c.BusCloser
	dev    *i2c.Dev
	logger *zap.Logger
}

// NewI2CBackend 打开 I2C 总线并定位 DSP（cfg.DeviceAddr 是总线地址，
// 不是命令里的 chip address）。
func NewI2CBackend(cfg cfgpkg.I2CConfig, logger *zap.Logger) (*I2CBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init i2c host: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusUnavailable, err)
	}
	b := &I2CBackend{
		bus:    bus,
		dev:    &i2c.Dev{Bus: bus, Addr: uint16(cfg.DeviceAddr)},
		logger: logger,
	}
	if cfg.ScanOnStart {
		b.scan()
	}
	return b, nil
}

// Read 两段式读：先写2字节大端寄存器指针，再从同一器件读 n 字节。
// 两段在同一次持锁、同一次 Tx 内完成。
func (b *I2CBackend) Read(ctx context.Context, addr uint16, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrBadLength
	}
	ptr := []byte{byte(addr >> 8), byte(addr)}
	out := make([]byte, n)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.dev.Tx(ptr, out); err != nil {
		return nil, fmt.Errorf("i2c read %s len=%d: %w", hexAddr(addr), n, err)
	}
	return out, nil
}

// Write 单次事务：寄存器指针紧跟负载一并写出
func (b *I2CBackend) Write(ctx context.Context, addr uint16, data []byte) error {
	buf := make([]byte, 0, 2+len(data))
	buf = append(buf, byte(addr>>8), byte(addr))
	buf = append(buf, data...)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.dev.Tx(buf, nil); err != nil {
		return fmt.Errorf("i2c write %s len=%d: %w", hexAddr(addr), len(data), err)
	}
	return nil
}

// Close 关闭总线
func (b *I2CBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bus.Close()
}

// scan 启动时遍历 1..126 探测在线器件，帮助定位接线/地址问题
func (b *I2CBackend) scan() {
	found := 0
	for a := uint16(1); a < 127; a++ {
		d := &i2c.Dev{Bus: b.bus, Addr: a}
		var probe [1]byte
		if err := d.Tx(nil, probe[:]); err == nil {
			b.logger.Info("i2c device found", zap.String("addr", hexAddr(a)))
			found++
		}
	}
	if found == 0 {
		b.logger.Warn("no i2c devices found on bus")
	}
}
