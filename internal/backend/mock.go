package backend

import (
	"bytes"
	"context"
	"sync"

	"go.uber.org/zap"
)

// MockFill mock 读返回的固定填充值
const MockFill byte = 0x0C

// WriteRecord 一次 mock 写入的留痕
type WriteRecord struct {
	Addr uint16
	Data []byte
}

// MockBackend 无硬件调试后端：读返回定值填充，写无条件成功并留痕。
// 用于脱离 DSP 验证协议层。
type MockBackend struct {
	mu     sync.Mutex
	fill   byte
	writes []WriteRecord
	logger *zap.Logger
}

// NewMockBackend 创建 mock 后端，fill 为 0 时使用默认填充值
func NewMockBackend(fill byte, logger *zap.Logger) *MockBackend {
	if fill == 0 {
		fill = MockFill
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockBackend{fill: fill, logger: logger}
}

func (m *MockBackend) Read(ctx context.Context, addr uint16, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrBadLength
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Info("mock read", zap.String("addr", hexAddr(addr)), zap.Int("len", n))
	return bytes.Repeat([]byte{m.fill}, n), nil
}

func (m *MockBackend) Write(ctx context.Context, addr uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dup := make([]byte, len(data))
	copy(dup, data)
	m.writes = append(m.writes, WriteRecord{Addr: addr, Data: dup})
	m.logger.Info("mock write", zap.String("addr", hexAddr(addr)), zap.Int("len", len(data)))
	return nil
}

// Writes 返回已记录写入的副本
func (m *MockBackend) Writes() []WriteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WriteRecord, len(m.writes))
	copy(out, m.writes)
	return out
}
