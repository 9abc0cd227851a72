package sigmatcp

// SigmaStudio TCP 桥接协议：定长头 + 变长负载，所有多字节字段均为大端。
// 布局：
//   读命令  0x0A: control(1) | totalLen(4) | chipAddr(1) | dataLen(4) | paramAddr(2)
//   写命令  0x09: control(1) | safeload(1) | channel(1) | totalLen(4) | chipAddr(1) | dataLen(4) | paramAddr(2) | data(dataLen)
//   响应帧  0x0B: control(1) | totalLen(4) | chipAddr(1) | dataLen(4) | paramAddr(2) | success(1) | reserved(1) | [data]
const (
	OpWrite byte = 0x09
	OpRead  byte = 0x0A
	OpResp  byte = 0x0B
)

const (
	ReadHeaderLen  = 12
	WriteHeaderLen = 14
	// RespHeaderLen 响应头的物理长度。注意 totalLen 字段按对端约定记
	// 13+payload（写响应为 13），与物理头长度不一致，属协议既有行为。
	RespHeaderLen = 14
)

// respDeclaredBase totalLen 字段的基数（见 RespHeaderLen 注释）
const respDeclaredBase = 13

// Command 上行命令，Read/Write/Unknown 三种
type Command interface{ isCommand() }

// ReadCommand 读寄存器命令（0x0A，定长12字节）
type ReadCommand struct {
	Control   byte
	TotalLen  uint32
	ChipAddr  byte
	DataLen   uint32
	ParamAddr uint16
}

// WriteCommand 写寄存器命令（0x09，14字节头 + DataLen 字节负载）
type WriteCommand struct {
	Control   byte
	Safeload  byte
	Channel   byte
	TotalLen  uint32
	ChipAddr  byte
	DataLen   uint32
	ParamAddr uint16
	Data      []byte
}

// UnknownCommand 未识别的命令字节，仅携带原始 opcode
type UnknownCommand struct {
	Opcode byte
}

func (ReadCommand) isCommand()    {}
func (WriteCommand) isCommand()   {}
func (UnknownCommand) isCommand() {}

// Response 下行响应帧（0x0B）。Success 为 0 表示成功，非 0 表示失败。
// Data 仅读响应携带。
type Response struct {
	Control   byte
	TotalLen  uint32
	ChipAddr  byte
	DataLen   uint32
	ParamAddr uint16
	Success   byte
	Reserved  byte
	Data      []byte
}
