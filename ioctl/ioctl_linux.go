package ioctl

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Request codes use the generic Linux layout (check include/ARCH/ioctl.h
// for architectures that differ, e.g. powerpc):
//
//  bits    meaning
//  31-30	00 - no parameters: uses _IO macro
// 	10 - read: _IOR
// 	01 - write: _IOW
// 	11 - read/write: _IOWR
//
//  29-16	size of arguments
//
//  15-8	ascii character unique to each driver
//
//  7-0	function #
//
// source: https://www.kernel.org/doc/Documentation/ioctl/ioctl-decoding.txt

// Code is an encoded ioctl request number.
type Code uint32

const (
	None  = uint8(0x0)
	Write = uint8(0x1)
	Read  = uint8(0x2)
)

const (
	nrBits   = 8
	typeBits = 8
	sizeBits = 14

	nrShift   = 0
	typeShift = nrShift + nrBits
	sizeShift = typeShift + typeBits
	dirShift  = sizeShift + sizeBits

	maxSize = 1<<sizeBits - 1
)

// NewCode encodes a request. It panics on a direction or argument size
// that cannot be represented, the same way the kernel macros fail to build.
func NewCode(dir uint8, size uintptr, uniq, fn uint8) Code {
	if dir > Write|Read {
		panic(fmt.Errorf("invalid ioctl direction: %d", dir))
	}

	if size > maxSize {
		panic(fmt.Errorf("invalid ioctl size value: %d", size))
	}

	return Code(uint32(dir)<<dirShift |
		uint32(size)<<sizeShift |
		uint32(uniq)<<typeShift |
		uint32(fn)<<nrShift)
}

// IOR, IOW and IOWR mirror the _IOR/_IOW/_IOWR kernel macros.
func IOR(uniq, fn uint8, size uintptr) Code  { return NewCode(Read, size, uniq, fn) }
func IOW(uniq, fn uint8, size uintptr) Code  { return NewCode(Write, size, uniq, fn) }
func IOWR(uniq, fn uint8, size uintptr) Code { return NewCode(Read|Write, size, uniq, fn) }

func (c Code) Dir() uint8     { return uint8(uint32(c) >> dirShift) }
func (c Code) Size() uintptr  { return uintptr(uint32(c)>>sizeShift) & maxSize }
func (c Code) Type() uint8    { return uint8(uint32(c) >> typeShift) }
func (c Code) Number() uint8  { return uint8(uint32(c) >> nrShift) }
func (c Code) String() string { return fmt.Sprintf("%#08x", uint32(c)) }

// Do issues the request on fd. A failing call returns the unix.Errno
// so callers can report the numeric code.
func Do(fd uintptr, code Code, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(code), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
