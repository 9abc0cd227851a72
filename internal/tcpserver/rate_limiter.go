package tcpserver

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter 接入速率限流器（令牌桶），抵御连接风暴
type RateLimiter struct {
	limiter       *rate.Limiter
	allowedCount  atomic.Int64
	rejectedCount atomic.Int64
}

// NewRateLimiter 创建速率限流器：ratePerSec 稳定速率，burst 突发容量
func NewRateLimiter(ratePerSec, burst int) *RateLimiter {
	if ratePerSec <= 0 {
		ratePerSec = 100
	}
	if burst <= 0 {
		burst = ratePerSec * 2
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Allow 非阻塞判定是否放行
func (l *RateLimiter) Allow() bool {
	if l.limiter.Allow() {
		l.allowedCount.Add(1)
		return true
	}
	l.rejectedCount.Add(1)
	return false
}

// AllowedCount 放行计数
func (l *RateLimiter) AllowedCount() int64 { return l.allowedCount.Load() }

// RejectedCount 拒绝计数
func (l *RateLimiter) RejectedCount() int64 { return l.rejectedCount.Load() }
