package tcpserver

import (
	"context"
	"testing"
	"time"
)

func TestConnectionLimiter(t *testing.T) {
	t.Run("基本限流功能", func(t *testing.T) {
		limiter := NewConnectionLimiter(3, 100*time.Millisecond)

		// 获取3个许可
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			if err := limiter.Acquire(ctx); err != nil {
				t.Fatalf("第%d次获取失败: %v", i+1, err)
			}
		}

		// 第4次应该超时
		if err := limiter.Acquire(ctx); err == nil {
			t.Fatal("第4次获取应该失败")
		}
		if limiter.RejectedCount() != 1 {
			t.Errorf("期望拒绝1个，实际: %d", limiter.RejectedCount())
		}

		// 释放一个后再次获取应该成功
		limiter.Release()
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("释放后获取失败: %v", err)
		}
	})

	t.Run("统计功能", func(t *testing.T) {
		limiter := NewConnectionLimiter(10, time.Second)

		for i := 0; i < 5; i++ {
			_ = limiter.Acquire(context.Background())
		}

		if limiter.Current() != 5 {
			t.Errorf("期望5个活跃连接，实际: %d", limiter.Current())
		}
		if limiter.MaxConnections() != 10 {
			t.Errorf("期望最大10个连接，实际: %d", limiter.MaxConnections())
		}
	})

	t.Run("空释放不破坏计数", func(t *testing.T) {
		limiter := NewConnectionLimiter(1, 100*time.Millisecond)
		limiter.Release()
		if limiter.Current() != 0 {
			t.Errorf("期望0个活跃连接，实际: %d", limiter.Current())
		}
		if err := limiter.Acquire(context.Background()); err != nil {
			t.Fatalf("获取失败: %v", err)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("速率限流", func(t *testing.T) {
		limiter := NewRateLimiter(10, 20) // 每秒10个，突发20个

		// 突发消费20个
		for i := 0; i < 20; i++ {
			if !limiter.Allow() {
				t.Fatalf("突发第%d个请求被拒绝", i+1)
			}
		}

		// 第21个应该被拒绝
		if limiter.Allow() {
			t.Fatal("第21个请求应该被拒绝")
		}

		// 等待150ms，应该能补充token
		time.Sleep(150 * time.Millisecond)
		if !limiter.Allow() {
			t.Fatal("等待后的请求应该成功")
		}
	})

	t.Run("统计功能", func(t *testing.T) {
		limiter := NewRateLimiter(100, 200)

		for i := 0; i < 10; i++ {
			limiter.Allow()
		}

		if limiter.AllowedCount() != 10 {
			t.Errorf("期望允许10个，实际: %d", limiter.AllowedCount())
		}
		if limiter.RejectedCount() != 0 {
			t.Errorf("期望拒绝0个，实际: %d", limiter.RejectedCount())
		}
	})

	t.Run("默认参数", func(t *testing.T) {
		limiter := NewRateLimiter(0, 0)
		if !limiter.Allow() {
			t.Fatal("默认参数下首个请求应该放行")
		}
	})
}
