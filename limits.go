package hwcomp

import (
	"unsafe"

	"github.com/NeowayLabs/hwcomp/ioctl"
)

type (
	sysPlatformInfo struct {
		maxXDecim2D uint8
		maxYDecim2D uint8
		maxXDecim1D uint8
		maxYDecim1D uint8
		fclk        uint32 // pipeline clock in Hz
		minWidth    uint8
		_           uint8

		integerScaleRatioLimit uint16
		maxWidth, maxHeight    uint16
		maxDownscale           uint8
		_                      [3]uint8

		tiler1DSlotSize uint32
		fbmemType       uint32
	}

	// PlatformLimits are the scaling and memory limits of the overlay
	// hardware. They are queried once per session and never change.
	PlatformLimits struct {
		MaxXDecim2D, MaxYDecim2D uint32
		MaxXDecim1D, MaxYDecim1D uint32

		FClk uint32 // Hz

		MinWidth               uint32
		IntegerScaleRatioLimit uint32
		MaxWidth, MaxHeight    uint32
		MaxDownscale           uint32

		Tiler1DSlotSize uint32 // bytes
		FBMemType       FBMemType
	}

	FBMemType uint32
)

const (
	FBMemNonTiler FBMemType = iota
	FBMemTiler1D
	FBMemTiler2D
)

var _ [0]struct{} = [unsafe.Sizeof(sysPlatformInfo{}) - 28]struct{}{}

func (t FBMemType) String() string {
	switch t {
	case FBMemNonTiler:
		return "non-tiler"
	case FBMemTiler1D:
		return "tiler1d"
	case FBMemTiler2D:
		return "tiler2d"
	}
	return "unknown"
}

func (s *sysPlatformInfo) limits() PlatformLimits {
	return PlatformLimits{
		MaxXDecim2D:            uint32(s.maxXDecim2D),
		MaxYDecim2D:            uint32(s.maxYDecim2D),
		MaxXDecim1D:            uint32(s.maxXDecim1D),
		MaxYDecim1D:            uint32(s.maxYDecim1D),
		FClk:                   s.fclk,
		MinWidth:               uint32(s.minWidth),
		IntegerScaleRatioLimit: uint32(s.integerScaleRatioLimit),
		MaxWidth:               uint32(s.maxWidth),
		MaxHeight:              uint32(s.maxHeight),
		MaxDownscale:           uint32(s.maxDownscale),
		Tiler1DSlotSize:        s.tiler1DSlotSize,
		FBMemType:              FBMemType(s.fbmemType),
	}
}

// PlatformLimits queries the global limits of the overlay hardware.
func (s *Session) PlatformLimits() (PlatformLimits, error) {
	fd, err := s.handle()
	if err != nil {
		return PlatformLimits{}, err
	}

	info := &sysPlatformInfo{}
	err = ioctl.Do(fd, IOCTLQueryPlatform, unsafe.Pointer(info))
	if err != nil {
		return PlatformLimits{}, s.queryError("query platform", NoDisplay, err)
	}
	return info.limits(), nil
}
