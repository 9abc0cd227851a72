package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/dsp-bridge/internal/config"
)

// HTTPBridgeBackend 通过远端桥的 HTTP 便捷接口（GET /read、/write）
// 完成寄存器访问，契约与本地后端一致，可互换。
type HTTPBridgeBackend struct {
	base   string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPBridgeBackend 创建 HTTP 桥后端
func NewHTTPBridgeBackend(cfg cfgpkg.BridgeConfig, logger *zap.Logger) *HTTPBridgeBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBridgeBackend{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type bridgeReadReply struct {
	Addr  string   `json:"addr"`
	Len   int      `json:"len"`
	Data  []string `json:"data"`
	Error string   `json:"error"`
}

type bridgeWriteReply struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (b *HTTPBridgeBackend) Read(ctx context.Context, addr uint16, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrBadLength
	}
	q := url.Values{}
	q.Set("addr", hexAddr(addr))
	q.Set("len", strconv.Itoa(n))

	var reply bridgeReadReply
	if err := b.get(ctx, "/read", q, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("bridge read %s: %s", hexAddr(addr), reply.Error)
	}
	data := make([]byte, 0, len(reply.Data))
	for _, s := range reply.Data {
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("bridge read %s: bad byte %q", hexAddr(addr), s)
		}
		data = append(data, byte(v))
	}
	return data, nil
}

func (b *HTTPBridgeBackend) Write(ctx context.Context, addr uint16, data []byte) error {
	var hexData strings.Builder
	for _, d := range data {
		fmt.Fprintf(&hexData, "%02x", d)
	}
	q := url.Values{}
	q.Set("addr", hexAddr(addr))
	q.Set("data", hexData.String())

	var reply bridgeWriteReply
	if err := b.get(ctx, "/write", q, &reply); err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("bridge write %s: %s", hexAddr(addr), reply.Error)
	}
	return nil
}

func (b *HTTPBridgeBackend) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBusUnavailable, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("bridge %s: decode reply: %w", path, err)
	}
	return nil
}
