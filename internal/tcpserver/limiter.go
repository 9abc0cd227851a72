package tcpserver

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ConnectionLimiter 连接数限流器（信号量实现）。
// 桥接端正常只有一个 SigmaStudio 客户端，上限主要防异常客户端打满句柄。
type ConnectionLimiter struct {
	sem           chan struct{}
	timeout       time.Duration
	maxConn       int
	activeCount   atomic.Int64
	rejectedCount atomic.Int64
}

// NewConnectionLimiter 创建连接限流器；timeout 是获取许可的等待上限
func NewConnectionLimiter(maxConn int, timeout time.Duration) *ConnectionLimiter {
	if maxConn <= 0 {
		maxConn = 64
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ConnectionLimiter{
		sem:     make(chan struct{}, maxConn),
		timeout: timeout,
		maxConn: maxConn,
	}
}

// Acquire 获取连接许可
func (l *ConnectionLimiter) Acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
		l.activeCount.Add(1)
		return nil
	case <-ctx.Done():
		l.rejectedCount.Add(1)
		return fmt.Errorf("connection limit exceeded: max=%d", l.maxConn)
	}
}

// Release 释放连接许可
func (l *ConnectionLimiter) Release() {
	select {
	case <-l.sem:
		l.activeCount.Add(-1)
	default:
	}
}

// Current 当前活跃连接数
func (l *ConnectionLimiter) Current() int { return int(l.activeCount.Load()) }

// MaxConnections 最大连接数
func (l *ConnectionLimiter) MaxConnections() int { return l.maxConn }

// RejectedCount 被拒绝的连接数（累计）
func (l *ConnectionLimiter) RejectedCount() int64 { return l.rejectedCount.Load() }
