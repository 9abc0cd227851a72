package sigmatcp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrShortBuffer 字节尚不完整，等更多数据后重试（非故障语义）
	ErrShortBuffer = errors.New("short buffer")
	// ErrUnknownOpcode 未识别的命令字节
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrFrameTooLarge 声明长度超出缓冲上限，该帧永远无法集齐
	ErrFrameTooLarge = errors.New("frame exceeds buffer capacity")
)

// Parse 从 buf 头部解析一条命令，返回命令、消费的字节数与错误。
// 纯函数：对同一输入反复调用结果一致，不保留任何跨调用状态。
//   - 数据不足：(nil, 0, ErrShortBuffer)，一个字节都不消费，写命令头齐
//     但负载未到时同样如此
//   - 未识别 opcode：(UnknownCommand, 0, ErrUnknownOpcode 包装)，重同步
//     策略由调用方决定
func Parse(buf []byte) (Command, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrShortBuffer
	}
	switch buf[0] {
	case OpRead:
		if len(buf) < ReadHeaderLen {
			return nil, 0, ErrShortBuffer
		}
		cmd := ReadCommand{
			Control:   buf[0],
			TotalLen:  binary.BigEndian.Uint32(buf[1:5]),
			ChipAddr:  buf[5],
			DataLen:   binary.BigEndian.Uint32(buf[6:10]),
			ParamAddr: binary.BigEndian.Uint16(buf[10:12]),
		}
		return cmd, ReadHeaderLen, nil
	case OpWrite:
		if len(buf) < WriteHeaderLen {
			return nil, 0, ErrShortBuffer
		}
		dataLen := binary.BigEndian.Uint32(buf[8:12])
		total := WriteHeaderLen + int(dataLen)
		if len(buf) < total {
			return nil, 0, ErrShortBuffer
		}
		data := make([]byte, dataLen)
		copy(data, buf[WriteHeaderLen:total])
		cmd := WriteCommand{
			Control:   buf[0],
			Safeload:  buf[1],
			Channel:   buf[2],
			TotalLen:  binary.BigEndian.Uint32(buf[3:7]),
			ChipAddr:  buf[7],
			DataLen:   dataLen,
			ParamAddr: binary.BigEndian.Uint16(buf[12:14]),
			Data:      data,
		}
		return cmd, total, nil
	default:
		return UnknownCommand{Opcode: buf[0]}, 0, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, buf[0])
	}
}

// ParseResponse 解析一帧 0x0B 响应（用于对端视角与回环校验）。
// 负载长度由 totalLen-13 推得，写响应 totalLen=13 即无负载。
func ParseResponse(buf []byte) (*Response, int, error) {
	if len(buf) == 0 {
		return nil, 0, ErrShortBuffer
	}
	if buf[0] != OpResp {
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, buf[0])
	}
	if len(buf) < RespHeaderLen {
		return nil, 0, ErrShortBuffer
	}
	r := &Response{
		Control:   buf[0],
		TotalLen:  binary.BigEndian.Uint32(buf[1:5]),
		ChipAddr:  buf[5],
		DataLen:   binary.BigEndian.Uint32(buf[6:10]),
		ParamAddr: binary.BigEndian.Uint16(buf[10:12]),
		Success:   buf[12],
		Reserved:  buf[13],
	}
	payload := 0
	if r.TotalLen > respDeclaredBase {
		payload = int(r.TotalLen) - respDeclaredBase
	}
	if len(buf) < RespHeaderLen+payload {
		return nil, 0, ErrShortBuffer
	}
	if payload > 0 {
		r.Data = make([]byte, payload)
		copy(r.Data, buf[RespHeaderLen:RespHeaderLen+payload])
	}
	return r, RespHeaderLen + payload, nil
}
