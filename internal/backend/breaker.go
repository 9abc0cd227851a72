package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常，事务放行
	BreakerOpen                         // 熔断，快速失败
	BreakerHalfOpen                     // 半开，放行少量试探事务
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen 总线熔断中，事务被快速拒绝
var ErrBreakerOpen = errors.New("register bus circuit open")

// BreakerBackend 给任意 Backend 套上熔断保护：连续总线故障达到阈值后
// 快速失败一段时间，避免每条命令都压在已失联的硬件上等待。
// 对单条命令而言仍是一次失败一次错误结果，不做重试。
type BreakerBackend struct {
	inner Backend

	mu           sync.Mutex
	state        BreakerState
	failureCount int
	successCount int
	lastFailTime time.Time

	threshold   int
	cooldown    time.Duration
	halfOpenMax int

	logger *zap.Logger
}

// NewBreakerBackend 包装 be。threshold 次连续失败进入熔断，
// cooldown 后转半开试探。
func NewBreakerBackend(be Backend, threshold int, cooldown time.Duration, logger *zap.Logger) *BreakerBackend {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreakerBackend{
		inner:       be,
		threshold:   threshold,
		cooldown:    cooldown,
		halfOpenMax: 3,
		logger:      logger,
	}
}

func (b *BreakerBackend) Read(ctx context.Context, addr uint16, n int) ([]byte, error) {
	if err := b.before(); err != nil {
		return nil, err
	}
	data, err := b.inner.Read(ctx, addr, n)
	b.after(err)
	return data, err
}

func (b *BreakerBackend) Write(ctx context.Context, addr uint16, data []byte) error {
	if err := b.before(); err != nil {
		return err
	}
	err := b.inner.Write(ctx, addr, data)
	b.after(err)
	return err
}

// State 当前熔断状态
func (b *BreakerBackend) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *BreakerBackend) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if time.Since(b.lastFailTime) > b.cooldown {
			b.transition(BreakerHalfOpen)
			b.failureCount, b.successCount = 0, 0
			return nil
		}
		return ErrBreakerOpen
	case BreakerHalfOpen:
		if b.failureCount+b.successCount >= b.halfOpenMax {
			return ErrBreakerOpen
		}
		return nil
	default:
		return ErrBreakerOpen
	}
}

func (b *BreakerBackend) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failureCount++
		b.lastFailTime = time.Now()
		switch b.state {
		case BreakerClosed:
			if b.failureCount >= b.threshold {
				b.transition(BreakerOpen)
			}
		case BreakerHalfOpen:
			b.transition(BreakerOpen)
		}
		return
	}

	b.successCount++
	if b.state == BreakerHalfOpen && b.successCount >= b.halfOpenMax {
		b.transition(BreakerClosed)
		b.failureCount, b.successCount = 0, 0
	}
	if b.state == BreakerClosed {
		b.failureCount = 0
	}
}

func (b *BreakerBackend) transition(to BreakerState) {
	if b.state == to {
		return
	}
	b.logger.Warn("bus breaker state change",
		zap.String("from", b.state.String()),
		zap.String("to", to.String()),
	)
	b.state = to
}
