package httpserver

import (
	"errors"
	"strconv"
	"strings"
)

var errEmptyParam = errors.New("missing value")

// parseNumber 解析 0x 前缀十六进制或十进制字面量
func parseNumber(s string) (uint64, error) {
	if s == "" {
		return 0, errEmptyParam
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// parseAddr 16位寄存器地址
func parseAddr(s string) (uint16, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v > 0xFFFF {
		return 0, errors.New("address out of 16-bit range")
	}
	return uint16(v), nil
}

// parseLen 读取长度，上限一个分区传输的量级
func parseLen(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v > 1<<20 {
		return 0, errors.New("length too large")
	}
	return int(v), nil
}

// parseHexData 连续十六进制串转字节：两位一字节，末尾落单的半字节忽略。
// 允许 0x 前缀。
func parseHexData(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	out := make([]byte, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		v, err := strconv.ParseUint(s[i:i+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(v))
	}
	return out, nil
}
