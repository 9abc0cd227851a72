// Package backend 定义寄存器访问能力及其三种实现：
// I2C 寄存器总线、mock（无硬件调试）、HTTP 桥（远端同构服务）。
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Backend 寄存器访问接口。addr 为 DSP 内部的16位参数地址。
// 实现必须保证单次调用的事务完整性：一次读（写地址指针 + 读数据）
// 进行期间不得有其它总线事务插入。
type Backend interface {
	Read(ctx context.Context, addr uint16, n int) ([]byte, error)
	Write(ctx context.Context, addr uint16, data []byte) error
}

var (
	// ErrBusUnavailable 总线打开失败或已关闭
	ErrBusUnavailable = errors.New("register bus unavailable")
	// ErrBadLength 读长度非法
	ErrBadLength = errors.New("invalid read length")
)

func hexAddr(addr uint16) string { return fmt.Sprintf("0x%04x", addr) }
