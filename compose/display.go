package compose

import (
	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/mode"
)

// Display indexes. The index of a display is also its manager.
const (
	DisplayPrimary  = 0
	DisplayExternal = 1
)

const (
	displayFPS = 60
	lcdDPI     = 150
	hdmiDPI    = 75
	inchToMM   = 25.4
)

const (
	RolePrimary Role = iota
	RoleExternal
)

const (
	TypeLCD DisplayType = iota
	TypeHDMI
)

type (
	Role        int
	DisplayType int

	// DisplayConfig is a configuration offered to the display server.
	DisplayConfig struct {
		XRes, YRes int
		FPS        int
		XDPI, YDPI int
	}

	// Framebuffer is the surface the GPU composes into for a display.
	Framebuffer struct {
		Width, Height int
		Format        Format
	}

	// Composition is the pipeline budget of a display and the driver request
	// being built for it. It is rebuilt every frame.
	Composition struct {
		Base    int // first pipeline
		Wanted  int
		Avail   int
		Scaling int // pipelines with a scaler
		Used    int

		Mem1DBudget uint32 // bytes

		UseGPU bool
		SwapRB bool

		Request hwcomp.Request
		// layer index per buffer of Request, -1 for the framebuffer
		Buffers []int
	}

	// Display is one attached output.
	Display struct {
		Index   int
		Role    Role
		Type    DisplayType
		Manager int

		Info         hwcomp.DisplayInfo
		Configs      []DisplayConfig
		ActiveConfig int
		FB           Framebuffer

		Transform   Transform
		Stats       LayerStatistics
		Composition Composition

		// set on the external display
		Mirror *MirroringState

		contents []Layer
		modes    *mode.Database
		mode     int // index in modes, mode.NoMode if not set by us
	}
)

func (r Role) String() string {
	if r == RolePrimary {
		return "primary"
	}
	return "external"
}

func (t DisplayType) String() string {
	if t == TypeHDMI {
		return "hdmi"
	}
	return "lcd"
}

func displayType(info *hwcomp.DisplayInfo) DisplayType {
	if info.IsTV() {
		return TypeHDMI
	}
	return TypeLCD
}

func newConfig(xres, yres int, info *hwcomp.DisplayInfo, defaultDPI int) DisplayConfig {
	c := DisplayConfig{
		XRes: xres,
		YRes: yres,
		FPS:  displayFPS,
		XDPI: defaultDPI,
		YDPI: defaultDPI,
	}
	if info.WidthMM != 0 && info.HeightMM != 0 {
		c.XDPI = int(float64(xres)*inchToMM) / int(info.WidthMM)
		c.YDPI = int(float64(yres)*inchToMM) / int(info.HeightMM)
	}
	return c
}

func (d *Display) IsHDMI() bool { return d.Type == TypeHDMI }

// Mirroring reports whether d is an external display cloning the primary.
func (d *Display) Mirroring() bool {
	return d != nil && d.Mirror != nil && d.Mirror.Enabled
}

// Transformed reports whether d rotates or flips what it shows.
func (d *Display) Transformed() bool {
	return d.Transform.Rotation != 0 || d.Transform.HFlip
}

// CurrentMode returns the mode set on d and the mode database it indexes.
func (d *Display) CurrentMode() (int, *mode.Database) { return d.mode, d.modes }

// Contents returns the layer list of the frame being planned.
func (d *Display) Contents() []Layer { return d.contents }

func (d *Display) Config() DisplayConfig {
	if d.ActiveConfig < 0 || d.ActiveConfig >= len(d.Configs) {
		return DisplayConfig{}
	}
	return d.Configs[d.ActiveConfig]
}
