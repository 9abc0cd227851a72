package sigmatcp

import "encoding/binary"

// NewReadResponse 构造读响应，payload 原样附在头后
func NewReadResponse(chipAddr byte, dataLen uint32, paramAddr uint16, data []byte) *Response {
	return &Response{
		Control:   OpResp,
		TotalLen:  uint32(respDeclaredBase + len(data)),
		ChipAddr:  chipAddr,
		DataLen:   dataLen,
		ParamAddr: paramAddr,
		Data:      data,
	}
}

// NewWriteResponse 构造写响应（无负载，totalLen 固定 13）
func NewWriteResponse(chipAddr byte, dataLen uint32, paramAddr uint16) *Response {
	return &Response{
		Control:   OpResp,
		TotalLen:  respDeclaredBase,
		ChipAddr:  chipAddr,
		DataLen:   dataLen,
		ParamAddr: paramAddr,
	}
}

// NewErrorResponse 构造失败响应：Success 置 1。data 为读命令的占位负载
// （通常为零填充，保持对端成帧），写命令传 nil。
func NewErrorResponse(chipAddr byte, dataLen uint32, paramAddr uint16, data []byte) *Response {
	r := NewReadResponse(chipAddr, dataLen, paramAddr, data)
	r.Success = 1
	return r
}

// Encode 序列化响应帧（大端），与 ParseResponse 对应
func (r *Response) Encode() []byte {
	buf := make([]byte, RespHeaderLen, RespHeaderLen+len(r.Data))
	buf[0] = r.Control
	binary.BigEndian.PutUint32(buf[1:5], r.TotalLen)
	buf[5] = r.ChipAddr
	binary.BigEndian.PutUint32(buf[6:10], r.DataLen)
	binary.BigEndian.PutUint16(buf[10:12], r.ParamAddr)
	buf[12] = r.Success
	buf[13] = r.Reserved
	return append(buf, r.Data...)
}
