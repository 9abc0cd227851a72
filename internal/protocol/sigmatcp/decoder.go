package sigmatcp

import (
	"encoding/binary"
	"errors"
)

// ResyncPolicy 遇到未识别命令字节后的重同步策略。
// 上游实现两种行为都出现过，这里显式暴露为配置项。
type ResyncPolicy int

const (
	// ResyncDropByte 丢弃1字节后从下一字节继续寻找命令
	ResyncDropByte ResyncPolicy = iota
	// ResyncDropBuffer 丢弃整个未消费缓冲
	ResyncDropBuffer
)

// DefaultMaxBuffer 单连接缓冲上限：ADAU1452 一个内存分区整体下载
// （20480 字 × 4 字节）加一条写命令头。
const DefaultMaxBuffer = 20480*4 + WriteHeaderLen

// Decoder 处理 TCP 半包/粘包的流式解码器。
// 缓冲归属于单个连接，容量固定，每轮 Feed 后对未消费字节做前移压缩。
type Decoder struct {
	buf     []byte
	max     int
	policy  ResyncPolicy
	readPad bool
	// pendingPad 上一条读命令尚未到达的零填充字节数。
	// 填充可能与命令本体分属不同 TCP 段，必须跨 Feed 记账，
	// 否则逐字节喂入时填充会被误判为未知 opcode。
	pendingPad int
}

// DecoderOption 解码器可选配置
type DecoderOption func(*Decoder)

// WithMaxBuffer 覆盖缓冲上限
func WithMaxBuffer(n int) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.max = n
		}
	}
}

// WithResyncPolicy 设置重同步策略
func WithResyncPolicy(p ResyncPolicy) DecoderOption {
	return func(d *Decoder) { d.policy = p }
}

// WithReadPadding 读命令后按 totalLen-12 吞掉已到达的零填充字节。
// 实测流量中读命令带 2 个尾随零字节（totalLen=14），不吞则会被当作
// 未知 opcode 进入重同步。
func WithReadPadding(consume bool) DecoderOption {
	return func(d *Decoder) { d.readPad = consume }
}

// NewDecoder 创建流式解码器
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{max: DefaultMaxBuffer, readPad: true}
	for _, o := range opts {
		o(d)
	}
	d.buf = make([]byte, 0, d.max)
	return d
}

// Buffered 当前未消费字节数
func (d *Decoder) Buffered() int { return len(d.buf) }

// Feed 追加收到的字节并解出可用命令，按到达顺序返回。
// UnknownCommand 也会被返回（供调用方记录），随后按策略重同步并停止本轮
// 排空；剩余字节留待下一轮。返回 ErrFrameTooLarge 时缓冲已被清空。
func (d *Decoder) Feed(p []byte) ([]Command, error) {
	if len(d.buf)+len(p) > d.max {
		d.buf = d.buf[:0]
		d.pendingPad = 0
		return nil, ErrFrameTooLarge
	}
	d.buf = append(d.buf, p...)

	var out []Command
	consumed := 0
drain:
	for consumed < len(d.buf) {
		// 先吞上一条读命令遗留的零填充；遇到非零字节即视为下一条命令开头
		for d.pendingPad > 0 && consumed < len(d.buf) {
			if d.buf[consumed] != 0 {
				d.pendingPad = 0
				break
			}
			consumed++
			d.pendingPad--
		}
		if consumed >= len(d.buf) {
			break
		}
		rest := d.buf[consumed:]
		cmd, n, err := Parse(rest)
		switch {
		case err == nil:
			if rc, ok := cmd.(ReadCommand); ok && d.readPad && rc.TotalLen > ReadHeaderLen {
				d.pendingPad = int(rc.TotalLen) - ReadHeaderLen
			}
			out = append(out, cmd)
			consumed += n
		case errors.Is(err, ErrUnknownOpcode):
			out = append(out, cmd)
			if d.policy == ResyncDropBuffer {
				consumed = len(d.buf)
			} else {
				consumed++
			}
			break drain
		default:
			// 半包：若写命令声明的长度注定放不进缓冲，直接放弃
			if rest[0] == OpWrite && len(rest) >= WriteHeaderLen {
				need := WriteHeaderLen + int(binary.BigEndian.Uint32(rest[8:12]))
				if need > d.max {
					d.buf = d.buf[:0]
					d.pendingPad = 0
					return out, ErrFrameTooLarge
				}
			}
			break drain
		}
	}

	// 未消费字节前移，复用固定容量
	d.buf = d.buf[:copy(d.buf, d.buf[consumed:])]
	return out, nil
}
