package tcpserver

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrConnClosed 连接已关闭
var ErrConnClosed = errors.New("connection closed")

// ConnContext 单个 TCP 连接的读写上下文。
// 写为同步写：响应必须在处理下一条命令前落到对端，
// 保证同一连接内响应顺序与命令顺序一致。
type ConnContext struct {
	s  *Server
	c  net.Conn
	id uint64

	onRead  func([]byte)
	writeMu sync.Mutex
	closed  atomic.Bool
}

func newConnContext(s *Server, c net.Conn) *ConnContext {
	return &ConnContext{
		s:  s,
		c:  c,
		id: atomic.AddUint64(&s.nextConnID, 1),
	}
}

// ID 连接ID（进程内唯一递增）
func (cc *ConnContext) ID() uint64 { return cc.id }

// RemoteAddr 远端地址
func (cc *ConnContext) RemoteAddr() net.Addr { return cc.c.RemoteAddr() }

// SetOnRead 安装读取回调（收到上行原始字节时在读循环内触发）
func (cc *ConnContext) SetOnRead(h func([]byte)) { cc.onRead = h }

// Write 同步写出全部字节，受写超时约束
func (cc *ConnContext) Write(b []byte) error {
	if cc.closed.Load() {
		return ErrConnClosed
	}
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	if cc.s.cfg.WriteTimeout > 0 {
		_ = cc.c.SetWriteDeadline(time.Now().Add(cc.s.cfg.WriteTimeout))
	}
	_, err := cc.c.Write(b)
	return err
}

// Close 主动关闭连接
func (cc *ConnContext) Close() {
	if cc.closed.CompareAndSwap(false, true) {
		_ = cc.c.Close()
	}
}

// readLoop 阻塞读循环。读到 0 字节（EOF）表示对端关闭；
// I/O 错误只终止本连接，不影响其它连接。
func (cc *ConnContext) readLoop() {
	buf := make([]byte, 4096)
	for {
		if cc.s.cfg.ReadTimeout > 0 {
			_ = cc.c.SetReadDeadline(time.Now().Add(cc.s.cfg.ReadTimeout))
		}
		n, err := cc.c.Read(buf)
		if n > 0 {
			if cc.s.onRecvBytes != nil {
				cc.s.onRecvBytes(n)
			}
			if cc.onRead != nil {
				cc.onRead(buf[:n])
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if err != io.EOF && !cc.closed.Load() {
				cc.s.logger.Warn("connection read error",
					zap.Uint64("conn_id", cc.id), zap.Error(err))
			}
			cc.Close()
			return
		}
	}
}
