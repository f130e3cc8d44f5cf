package compose

import "github.com/NeowayLabs/hwcomp"

// Format is a buffer pixel format, as allocated by the graphics allocator.
type Format uint32

const (
	FormatRGBA8888 Format = 1
	FormatRGBX8888 Format = 2
	FormatRGB565   Format = 4
	FormatBGRA8888 Format = 5
	FormatNV12     Format = 0x100
	FormatNV12Page Format = 0x102 // NV12 in 1D (paged) memory
	FormatBGRX8888 Format = 0x1FF
)

func (f Format) Valid() bool {
	switch f {
	case FormatRGB565, FormatRGBX8888, FormatRGBA8888, FormatBGRA8888, FormatBGRX8888,
		FormatNV12, FormatNV12Page:
		return true
	}
	return false
}

// IsRGB reports formats stored in the manager's native byte order.
func (f Format) IsRGB() bool {
	switch f {
	case FormatBGRA8888, FormatBGRX8888, FormatRGB565:
		return true
	}
	return false
}

// IsBGR reports formats that need a red/blue swap on the manager.
func (f Format) IsBGR() bool {
	return f == FormatRGBX8888 || f == FormatRGBA8888
}

func (f Format) IsNV12() bool {
	return f == FormatNV12 || f == FormatNV12Page
}

// BPP returns the bits per pixel of the (first plane of the) format.
func (f Format) BPP() int {
	switch f {
	case FormatBGRA8888, FormatBGRX8888, FormatRGBX8888, FormatRGBA8888:
		return 32
	case FormatRGB565:
		return 16
	case FormatNV12, FormatNV12Page:
		return 8
	}
	return 0
}

// ColorMode converts f to the pipeline color mode. Alpha formats only keep
// their alpha channel when the layer is blended.
func (f Format) ColorMode(blended bool) hwcomp.ColorMode {
	switch f {
	case FormatRGBA8888, FormatBGRA8888:
		if blended {
			return hwcomp.ColorARGB32
		}
		return hwcomp.ColorRGB24U
	case FormatRGBX8888, FormatBGRX8888:
		return hwcomp.ColorRGB24U
	case FormatRGB565:
		return hwcomp.ColorRGB16
	case FormatNV12, FormatNV12Page:
		return hwcomp.ColorNV12
	}
	return hwcomp.ColorARGB32
}

func (f Format) String() string {
	switch f {
	case FormatRGBA8888:
		return "RGBA_8888"
	case FormatRGBX8888:
		return "RGBX_8888"
	case FormatRGB565:
		return "RGB_565"
	case FormatBGRA8888:
		return "BGRA_8888"
	case FormatBGRX8888:
		return "BGRX_8888"
	case FormatNV12:
		return "NV12"
	case FormatNV12Page:
		return "NV12_1D"
	}
	return "unknown"
}
