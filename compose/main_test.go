package compose

import (
	"testing"

	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/config"
	"github.com/NeowayLabs/hwcomp/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const slotSize = 16 << 20

var (
	lcdInfo = hwcomp.DisplayInfo{
		Index:   0,
		Channel: hwcomp.ChannelLCD,
		Timings: hwcomp.Timings{XRes: 1280, YRes: 720},
	}

	hdmiInfo = hwcomp.DisplayInfo{
		Index:   1,
		Channel: hwcomp.ChannelDigit,
		Timings: hwcomp.Timings{XRes: 1920, YRes: 1080, PixelClock: 148500},
	}

	mode1080p = hwcomp.VideoMode{XRes: 1920, YRes: 1080, Refresh: 60, PixClock: 6734, Flag: hwcomp.FlagRatio16x9}
	mode720p  = hwcomp.VideoMode{XRes: 1280, YRes: 720, Refresh: 60, PixClock: 13468, Flag: hwcomp.FlagRatio16x9}
)

func testLimits() hwcomp.PlatformLimits {
	return hwcomp.PlatformLimits{
		MaxXDecim1D:            4,
		MaxYDecim1D:            4,
		MaxXDecim2D:            2,
		MaxYDecim2D:            2,
		MaxDownscale:           4,
		MinWidth:               2,
		IntegerScaleRatioLimit: 2048,
		FClk:                   170666666,
		Tiler1DSlotSize:        slotSize,
	}
}

func rect(w, h int) Rect { return Rect{Right: w, Bottom: h} }

func rgbLayer(f Format, w, h int) Layer {
	return Layer{
		Buffer:       &Buffer{Format: f, Width: w, Height: h},
		SourceCrop:   rect(w, h),
		DisplayFrame: rect(w, h),
	}
}

func nv12Layer(srcW, srcH, dstW, dstH int) Layer {
	return Layer{
		Buffer:       &Buffer{Format: FormatNV12, Width: srcW, Height: srcH},
		SourceCrop:   rect(srcW, srcH),
		DisplayFrame: rect(dstW, dstH),
	}
}

func targetLayer(w, h int) Layer {
	l := rgbLayer(FormatBGRA8888, w, h)
	l.FramebufferTarget = true
	l.Blending = BlendingPremult
	return l
}

// newTestDevice attaches a 1280x720 LCD primary display.
func newTestDevice(t *testing.T, cfg *config.Config) (*Device, *mocks.MockDriver) {
	t.Helper()

	ctrl := gomock.NewController(t)
	drv := mocks.NewMockDriver(ctrl)
	drv.EXPECT().PlatformLimits().Return(testLimits(), nil)
	drv.EXPECT().DisplayInfo(DisplayPrimary).Return(lcdInfo, nil)

	d, err := New(nil, drv, cfg, Framebuffer{})
	require.NoError(t, err)
	return d, drv
}

// putExternal attaches an HDMI external display without talking to the
// driver.
func putExternal(d *Device, mirroring bool) *Display {
	ext := &Display{
		Index:   DisplayExternal,
		Role:    RoleExternal,
		Type:    TypeHDMI,
		Manager: DisplayExternal,
		Info:    hdmiInfo,
		FB:      d.primary().FB,
		Mirror:  &MirroringState{Enabled: mirroring},
	}
	ext.Transform = Transform{Region: rect(ext.FB.Width, ext.FB.Height), Matrix: unitMatrix}
	d.displays.Put(DisplayExternal, ext)
	return ext
}
