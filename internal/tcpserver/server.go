package tcpserver

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/dsp-bridge/internal/config"
)

// Server SigmaStudio TCP 桥接入口：接受连接，每连接一个 goroutine，
// 把 ConnContext 交给上层安装协议处理回调。
type Server struct {
	cfg    cfgpkg.TCPConfig
	logger *zap.Logger

	ln    net.Listener
	wg    sync.WaitGroup
	stopC chan struct{}

	connMu sync.Mutex
	conns  map[uint64]*ConnContext

	limiter *ConnectionLimiter
	rate    *RateLimiter

	nextConnID uint64
	onConn     func(*ConnContext)

	// 指标回调
	onAccept    func()
	onRecvBytes func(n int)
}

// New 创建 TCP 桥接服务
func New(cfg cfgpkg.TCPConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		stopC:   make(chan struct{}),
		conns:   make(map[uint64]*ConnContext),
		limiter: NewConnectionLimiter(cfg.MaxConnections, 0),
		rate:    NewRateLimiter(cfg.AcceptRate, cfg.AcceptBurst),
	}
}

// SetConnHandler 设置连接建立回调（在读循环启动前调用，用于安装 onRead）
func (s *Server) SetConnHandler(h func(*ConnContext)) { s.onConn = h }

// SetMetricsCallbacks 设置指标回调
func (s *Server) SetMetricsCallbacks(onAccept func(), onRecvBytes func(int)) {
	s.onAccept, s.onRecvBytes = onAccept, onRecvBytes
}

// Addr 实际监听地址（Start 之后有效，测试用 ":0" 时取真实端口）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("tcp bridge listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopC:
				return
			default:
			}
			// 短暂错误等待后重试
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if !s.rate.Allow() {
			s.logger.Warn("accept rate exceeded, dropping connection",
				zap.String("remote_addr", conn.RemoteAddr().String()))
			_ = conn.Close()
			continue
		}
		if err := s.limiter.Acquire(context.Background()); err != nil {
			s.logger.Warn("connection limit reached, dropping connection",
				zap.String("remote_addr", conn.RemoteAddr().String()), zap.Error(err))
			_ = conn.Close()
			continue
		}
		if s.onAccept != nil {
			s.onAccept()
		}

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer s.limiter.Release()
	defer conn.Close()

	cc := newConnContext(s, conn)
	s.connMu.Lock()
	s.conns[cc.ID()] = cc
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		delete(s.conns, cc.ID())
		s.connMu.Unlock()
	}()

	s.logger.Info("client connected",
		zap.Uint64("conn_id", cc.ID()),
		zap.String("remote_addr", cc.RemoteAddr().String()),
	)
	if s.onConn != nil {
		s.onConn(cc)
	}
	cc.readLoop()
	s.logger.Info("client disconnected", zap.Uint64("conn_id", cc.ID()))
}

// Shutdown 关闭监听、断开存量连接并等待处理退出
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopC)
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.connMu.Lock()
	for _, cc := range s.conns {
		cc.Close()
	}
	s.connMu.Unlock()
	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}
