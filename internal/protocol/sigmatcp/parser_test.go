package sigmatcp

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// 实测流量：IC 1 读 0xF6FB 两字节（totalLen=14，含2字节尾随零填充）
var sampleRead = []byte{
	0x0A,
	0x00, 0x00, 0x00, 0x0E,
	0x01,
	0x00, 0x00, 0x00, 0x02,
	0xF6, 0xFB,
}

// 实测流量：IC 1 写 0xF020 两字节 [0x00 0x08]
var sampleWrite = []byte{
	0x09,
	0x00,
	0x00,
	0x00, 0x00, 0x00, 0x10,
	0x01,
	0x00, 0x00, 0x00, 0x02,
	0xF0, 0x20,
	0x00, 0x08,
}

func TestParse_Read(t *testing.T) {
	cmd, n, err := Parse(sampleRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != ReadHeaderLen {
		t.Fatalf("consumed = %d, want %d", n, ReadHeaderLen)
	}
	rc, ok := cmd.(ReadCommand)
	if !ok {
		t.Fatalf("expected ReadCommand, got %T", cmd)
	}
	if rc.Control != OpRead || rc.TotalLen != 0x0E || rc.ChipAddr != 0x01 ||
		rc.DataLen != 2 || rc.ParamAddr != 0xF6FB {
		t.Fatalf("unexpected command: %+v", rc)
	}
}

func TestParse_ReadIgnoresTrailingBytes(t *testing.T) {
	// 同一物理包里读头后的字节不属于本命令
	buf := append(append([]byte{}, sampleRead...), 0x00, 0x00)
	cmd, n, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != ReadHeaderLen {
		t.Fatalf("consumed = %d, want %d", n, ReadHeaderLen)
	}
	if _, ok := cmd.(ReadCommand); !ok {
		t.Fatalf("expected ReadCommand, got %T", cmd)
	}
}

func TestParse_Write(t *testing.T) {
	cmd, n, err := Parse(sampleWrite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 16 {
		t.Fatalf("consumed = %d, want 16", n)
	}
	wc, ok := cmd.(WriteCommand)
	if !ok {
		t.Fatalf("expected WriteCommand, got %T", cmd)
	}
	if wc.Safeload != 0 || wc.Channel != 0 || wc.TotalLen != 0x10 ||
		wc.ChipAddr != 0x01 || wc.DataLen != 2 || wc.ParamAddr != 0xF020 {
		t.Fatalf("unexpected command: %+v", wc)
	}
	if !bytes.Equal(wc.Data, []byte{0x00, 0x08}) {
		t.Fatalf("unexpected data: %x", wc.Data)
	}
}

func TestParse_WriteLargeZeroPayload(t *testing.T) {
	// DM0 区块下载：80字节全零负载
	buf := []byte{
		0x09, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x5E,
		0x01,
		0x00, 0x00, 0x00, 0x50,
		0x00, 0x00,
	}
	buf = append(buf, make([]byte, 80)...)

	cmd, n, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != WriteHeaderLen+80 {
		t.Fatalf("consumed = %d, want %d", n, WriteHeaderLen+80)
	}
	wc := cmd.(WriteCommand)
	if wc.DataLen != 0x50 || wc.ParamAddr != 0x0000 {
		t.Fatalf("unexpected command: %+v", wc)
	}
	if len(wc.Data) != 80 {
		t.Fatalf("payload len = %d, want 80", len(wc.Data))
	}
	for i, b := range wc.Data {
		if b != 0 {
			t.Fatalf("payload[%d] = 0x%02x, want 0", i, b)
		}
	}
}

func TestParse_Incomplete(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"read header minus one", sampleRead[:ReadHeaderLen-1]},
		{"write header minus one", sampleWrite[:WriteHeaderLen-1]},
		{"write header without payload", sampleWrite[:WriteHeaderLen]},
		{"write partial payload", sampleWrite[:WriteHeaderLen+1]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, n, err := Parse(tc.buf)
			if err != ErrShortBuffer {
				t.Fatalf("err = %v, want ErrShortBuffer", err)
			}
			if cmd != nil || n != 0 {
				t.Fatalf("expected no consumption, got cmd=%v n=%d", cmd, n)
			}
		})
	}
}

func TestParse_UnknownOpcode(t *testing.T) {
	cmd, n, err := Parse([]byte{0xFF, 0x01, 0x02})
	if err == nil {
		t.Fatal("expected error")
	}
	if n != 0 {
		t.Fatalf("consumed = %d, want 0", n)
	}
	uc, ok := cmd.(UnknownCommand)
	if !ok {
		t.Fatalf("expected UnknownCommand, got %T", cmd)
	}
	if uc.Opcode != 0xFF {
		t.Fatalf("opcode = 0x%02x, want 0xFF", uc.Opcode)
	}
}

func TestParse_Pure(t *testing.T) {
	// 同一缓冲重复解析结果一致
	for i := 0; i < 3; i++ {
		cmd, n, err := Parse(sampleWrite)
		if err != nil || n != 16 {
			t.Fatalf("iteration %d: n=%d err=%v", i, n, err)
		}
		wc := cmd.(WriteCommand)
		if wc.ParamAddr != 0xF020 {
			t.Fatalf("iteration %d: %+v", i, wc)
		}
	}
}

func TestParse_ReadSequence(t *testing.T) {
	// SPDIF 状态寄存器轮询序列
	addrs := []uint16{0xF6F5, 0xF6F6, 0xF6F7, 0xF6F8, 0xF6F9, 0xF6FA, 0xF6FB}
	for _, addr := range addrs {
		buf := append([]byte{}, sampleRead...)
		binary.BigEndian.PutUint16(buf[10:12], addr)
		cmd, _, err := Parse(buf)
		if err != nil {
			t.Fatalf("addr 0x%04x: %v", addr, err)
		}
		if rc := cmd.(ReadCommand); rc.ParamAddr != addr {
			t.Fatalf("param addr = 0x%04x, want 0x%04x", rc.ParamAddr, addr)
		}
	}
}
