package compose

import (
	"encoding/json"
	"testing"

	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/config"
	"github.com/NeowayLabs/hwcomp/mocks"
	"github.com/NeowayLabs/hwcomp/mode"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sys/unix"
)

func TestNew(t *testing.T) {
	d, _ := newTestDevice(t, nil)

	primary, ok := d.Display(DisplayPrimary)
	require.True(t, ok)
	require.Equal(t, TypeLCD, primary.Type)
	require.Equal(t, Framebuffer{Width: 1280, Height: 720, Format: FormatBGRA8888}, primary.FB)
	require.False(t, primary.Transform.Scaling)
	require.Equal(t, DisplayConfig{XRes: 1280, YRes: 720, FPS: 60, XDPI: 150, YDPI: 150}, primary.Config())
	require.Equal(t, float64(1), d.xpy)

	_, ok = d.Display(DisplayExternal)
	require.False(t, ok)
}

func TestNewRotatedFramebuffer(t *testing.T) {
	ctrl := gomock.NewController(t)
	drv := mocks.NewMockDriver(ctrl)
	drv.EXPECT().PlatformLimits().Return(testLimits(), nil)
	drv.EXPECT().DisplayInfo(DisplayPrimary).Return(lcdInfo, nil)

	d, err := New(nil, drv, nil, Framebuffer{Width: 720, Height: 1280})
	require.NoError(t, err)

	primary := d.primary()
	require.True(t, primary.Transform.Scaling)
	require.Equal(t, 1, primary.Transform.Rotation)

	// the GFX pipeline cannot take a scaled framebuffer
	d.reserveOverlays()
	require.Equal(t, hwcomp.PipelineVideo1, primary.Composition.Base)
	require.Equal(t, 3, primary.Composition.Avail)
	require.Equal(t, 3, primary.Composition.Scaling)
}

func TestNewFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	drv := mocks.NewMockDriver(ctrl)

	drv.EXPECT().PlatformLimits().Return(hwcomp.PlatformLimits{},
		&hwcomp.QueryError{Op: "query platform", Display: hwcomp.NoDisplay, Errno: unix.EIO})
	_, err := New(nil, drv, nil, Framebuffer{})
	require.Error(t, err)
	require.True(t, errors.Is(err, hwcomp.ErrQueryFailed))

	drv.EXPECT().PlatformLimits().Return(testLimits(), nil)
	drv.EXPECT().DisplayInfo(DisplayPrimary).Return(hwcomp.DisplayInfo{},
		&hwcomp.QueryError{Op: "query display", Display: 0, Errno: unix.ENODEV})
	_, err = New(nil, drv, nil, Framebuffer{})
	require.Error(t, err)

	var qerr *hwcomp.QueryError
	require.True(t, errors.As(err, &qerr))
	require.Equal(t, unix.ENODEV, qerr.Errno)
}

func TestReserveOverlays(t *testing.T) {
	for _, tc := range []struct {
		name             string
		ext, mirroring   bool
		lastInt, lastExt int
		protected        int

		primary, external Composition
	}{
		{
			name:    "primary only",
			primary: Composition{Base: 0, Wanted: 4, Avail: 4, Scaling: 3, Mem1DBudget: slotSize},
		},
		{
			name:    "external just detached",
			lastExt: 2,
			primary: Composition{Base: 0, Wanted: 4, Avail: 2, Scaling: 1, Mem1DBudget: slotSize / 2},
		},
		{
			name:     "presentation",
			ext:      true,
			primary:  Composition{Base: 0, Wanted: 2, Avail: 2, Scaling: 3, Mem1DBudget: slotSize / 2},
			external: Composition{Base: 2, Wanted: 2, Avail: 2, Scaling: 2, Mem1DBudget: slotSize / 2},
		},
		{
			name:      "protected layers",
			ext:       true,
			protected: 2,
			primary:   Composition{Base: 0, Wanted: 3, Avail: 3, Scaling: 3, Mem1DBudget: slotSize / 2},
			external:  Composition{Base: 3, Wanted: 1, Avail: 1, Scaling: 1, Mem1DBudget: slotSize / 2},
		},
		{
			name:      "mirroring while the primary holds pipelines",
			ext:       true,
			mirroring: true,
			lastInt:   3,
			primary:   Composition{Base: 0, Wanted: 2, Avail: 1, Scaling: 3, Mem1DBudget: slotSize},
			external:  Composition{Base: 3, Wanted: 2, Avail: 1, Scaling: 1, Mem1DBudget: slotSize},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newTestDevice(t, nil)
			d.lastInt, d.lastExt = tc.lastInt, tc.lastExt
			d.primary().Stats.Protected = tc.protected

			var ext *Display
			if tc.ext {
				ext = putExternal(d, tc.mirroring)
			}

			d.reserveOverlays()
			require.Equal(t, tc.primary, d.primary().Composition)
			if ext != nil {
				require.Equal(t, tc.external, ext.Composition)
			}
		})
	}
}

func TestAssignPipelinesReclaimsOnce(t *testing.T) {
	d, _ := newTestDevice(t, nil)
	primary := d.primary()
	d.lastExt = 2

	primary.Composition.Request.Reset(0)
	d.assignPipelines(primary)
	require.Equal(t, []hwcomp.ManagerInfo{
		{Index: DisplayPrimary, AlphaBlending: true},
		{Index: DisplayExternal, AlphaBlending: true},
	}, primary.Composition.Request.Managers)
	require.Zero(t, d.lastExt)

	primary.Composition.Request.Reset(1)
	d.assignPipelines(primary)
	require.Len(t, primary.Composition.Request.Managers, 1)
	require.Zero(t, d.lastExt)
}

func TestAssignPipelinesMirroring(t *testing.T) {
	d, _ := newTestDevice(t, nil)
	primary := d.primary()
	ext := putExternal(d, true)
	d.lastExt = 2

	primary.Composition.Request.Reset(0)
	ext.Composition.Request.Reset(0)
	d.assignPipelines(primary)
	d.assignPipelines(ext)

	require.Len(t, primary.Composition.Request.Managers, 2)
	require.Equal(t, DisplayExternal, primary.Composition.Request.Managers[1].Index)
	require.Empty(t, ext.Composition.Request.Managers)
	require.Equal(t, 2, d.lastExt)
}

func TestPrepareAllOverlays(t *testing.T) {
	d, _ := newTestDevice(t, nil)

	plans, err := d.Prepare([][]Layer{{
		rgbLayer(FormatBGRA8888, 1280, 720),
		nv12Layer(640, 360, 1280, 720),
		targetLayer(1280, 720),
	}})
	require.NoError(t, err)
	require.Len(t, plans, 1)

	plan := plans[0]
	require.False(t, plan.UseGPU)
	require.False(t, plan.Invalidate)
	require.Equal(t, []LayerPlan{
		{Placement: PlaceOverlay},
		{Placement: PlaceOverlay},
		{Placement: PlaceTarget},
	}, plan.Layers)
	require.Equal(t, []int{0, 1}, plan.Buffers)

	req := plan.Request
	require.Equal(t, []hwcomp.ManagerInfo{{Index: DisplayPrimary, AlphaBlending: true}}, req.Managers)
	require.Len(t, req.Pipelines, 2)

	gfx, vid := req.Pipelines[0], req.Pipelines[1]
	require.Equal(t, hwcomp.PipelineGFX, gfx.Index)
	require.Equal(t, 0, gfx.ZOrder)
	require.Equal(t, hwcomp.ColorRGB24U, gfx.ColorMode)
	require.Equal(t, 1280*4, gfx.Stride)

	require.Equal(t, hwcomp.PipelineVideo1, vid.Index)
	require.Equal(t, 1, vid.ZOrder)
	require.Equal(t, hwcomp.ColorNV12, vid.ColorMode)
	require.Equal(t, hwcomp.Window{W: 640, H: 360}, vid.Crop)
	require.Equal(t, hwcomp.Window{W: 1280, H: 720}, vid.Window)
	require.Equal(t, 1, vid.Buffer)

	require.Equal(t, 2, d.lastInt)
}

func TestPrepareKeepsScaledLayersOffGFX(t *testing.T) {
	d, _ := newTestDevice(t, nil)

	plans, err := d.Prepare([][]Layer{{
		nv12Layer(640, 360, 1280, 720),
		rgbLayer(FormatBGRA8888, 1280, 720),
	}})
	require.NoError(t, err)
	pipes := plans[0].Request.Pipelines
	require.Equal(t, hwcomp.PipelineVideo1, pipes[0].Index)
	require.Equal(t, hwcomp.PipelineGFX, pipes[1].Index)

	plans, err = d.Prepare([][]Layer{{nv12Layer(640, 360, 1280, 720)}})
	require.NoError(t, err)
	pipes = plans[0].Request.Pipelines
	require.Len(t, pipes, 1)
	require.Equal(t, hwcomp.PipelineVideo1, pipes[0].Index)
}

func TestPrepareForcedGPU(t *testing.T) {
	cfg := config.Default()
	cfg.Policy.ForceGPU = true
	d, _ := newTestDevice(t, cfg)

	protected := rgbLayer(FormatBGRA8888, 640, 480)
	protected.Buffer.Usage = UsageProtected

	plans, err := d.Prepare([][]Layer{{
		rgbLayer(FormatBGRA8888, 1280, 720),
		protected,
		targetLayer(1280, 720),
	}})
	require.NoError(t, err)

	plan := plans[0]
	require.True(t, plan.UseGPU)
	require.Equal(t, []LayerPlan{
		{Placement: PlaceGPU},
		{Placement: PlaceOverlay, ClearFB: true},
		{Placement: PlaceTarget},
	}, plan.Layers)
	require.Equal(t, []int{1, -1}, plan.Buffers)

	pipes := plan.Request.Pipelines
	require.Len(t, pipes, 2)

	// the target layer moves the framebuffer above the protected layer
	fb := pipes[0]
	require.Equal(t, hwcomp.PipelineGFX, fb.Index)
	require.Equal(t, 1, fb.ZOrder)
	require.True(t, fb.PreMultAlpha)
	require.Equal(t, hwcomp.ColorARGB32, fb.ColorMode)
	require.Equal(t, 1, fb.Buffer)

	require.Equal(t, hwcomp.PipelineVideo1, pipes[1].Index)
	require.Equal(t, 0, pipes[1].ZOrder)
	require.Equal(t, 0, pipes[1].Buffer)
}

func TestPrepareFramebufferAboveGPULayers(t *testing.T) {
	cfg := config.Default()
	cfg.Policy.NV12Only = true
	d, _ := newTestDevice(t, cfg)

	// the RGB layer goes to the GPU, the video below it keeps its pipeline
	plans, err := d.Prepare([][]Layer{{
		nv12Layer(640, 360, 1280, 720),
		rgbLayer(FormatBGRA8888, 1280, 720),
		nv12Layer(320, 240, 320, 240),
		targetLayer(1280, 720),
	}})
	require.NoError(t, err)

	plan := plans[0]
	require.True(t, plan.UseGPU)
	require.Equal(t, PlaceOverlay, plan.Layers[0].Placement)
	require.Equal(t, PlaceGPU, plan.Layers[1].Placement)
	require.Equal(t, PlaceOverlay, plan.Layers[2].Placement)

	zs := map[int]int{}
	for _, p := range plan.Request.Pipelines {
		zs[p.Buffer] = p.ZOrder
	}
	// buffers: 0 layer 0, 1 layer 2, 2 framebuffer
	require.Equal(t, map[int]int{0: 0, 1: 1, 2: 2}, zs)
}

func TestPrepareUnattached(t *testing.T) {
	d, _ := newTestDevice(t, nil)

	plans, err := d.Prepare([][]Layer{{targetLayer(1280, 720)}, {targetLayer(1280, 720)}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotAttached))
	require.Len(t, plans, 1)
}

func attachHDMI(t *testing.T, d *Device, drv *mocks.MockDriver) {
	t.Helper()

	drv.EXPECT().DisplayInfo(DisplayExternal).Return(hdmiInfo, nil).Times(2)
	drv.EXPECT().ModeDatabase(DisplayExternal, hwcomp.MaxModeDBLength).
		Return([]hwcomp.VideoMode{mode1080p, mode720p}, nil)
	drv.EXPECT().SetupDisplay(DisplayExternal, mode720p).Return(nil)

	require.NoError(t, d.HandleHotplug(true))
}

func TestHotplugMirroring(t *testing.T) {
	d, drv := newTestDevice(t, nil)
	attachHDMI(t, d, drv)

	ext, ok := d.Display(DisplayExternal)
	require.True(t, ok)
	require.True(t, ext.Mirroring())
	require.True(t, ext.IsHDMI())
	require.False(t, ext.Transformed())
	require.False(t, ext.Transform.Scaling)
	require.Equal(t, rect(1280, 720), ext.Transform.Region)

	current, db := ext.CurrentMode()
	require.Equal(t, 1, current)
	require.Len(t, db.Modes, 2)
	require.Equal(t, 1, ext.Mirror.Modeset.Index)
	require.Equal(t, uint32(1280), ext.Mirror.Modeset.AdjXRes)

	// the identity geometry would allow capture, the override keeps mem2mem
	require.Equal(t, WritebackMemToMem, ext.Mirror.Writeback)
	require.Equal(t, WritebackCapture, ComputeCaptureMode(1280, 720, 1280, 720))

	require.NoError(t, d.HandleHotplug(false))
	_, ok = d.Display(DisplayExternal)
	require.False(t, ok)
}

func TestHotplugMirroringCapture(t *testing.T) {
	cfg := config.Default()
	cfg.Writeback.ForceMemToMem = false
	d, drv := newTestDevice(t, cfg)
	attachHDMI(t, d, drv)

	ext, _ := d.Display(DisplayExternal)
	require.Equal(t, WritebackCapture, ext.Mirror.Writeback)
}

func TestHotplugMirroringFails(t *testing.T) {
	d, drv := newTestDevice(t, nil)

	drv.EXPECT().DisplayInfo(DisplayExternal).Return(hdmiInfo, nil).Times(2)
	drv.EXPECT().ModeDatabase(DisplayExternal, hwcomp.MaxModeDBLength).
		Return(nil, &hwcomp.QueryError{Op: "query modes", Display: 1, Errno: unix.EIO})

	require.NoError(t, d.HandleHotplug(true))

	ext, ok := d.Display(DisplayExternal)
	require.True(t, ok)
	require.False(t, ext.Mirroring())
	require.NotNil(t, ext.Mirror)
}

func TestHotplugAttachFails(t *testing.T) {
	d, drv := newTestDevice(t, nil)

	drv.EXPECT().DisplayInfo(DisplayExternal).Return(hwcomp.DisplayInfo{},
		&hwcomp.QueryError{Op: "query display", Display: 1, Errno: unix.ENODEV})

	err := d.HandleHotplug(true)
	require.Error(t, err)
	require.True(t, errors.Is(err, hwcomp.ErrQueryFailed))

	_, ok := d.Display(DisplayExternal)
	require.False(t, ok)
}

func TestPrepareMirroring(t *testing.T) {
	d, drv := newTestDevice(t, nil)
	attachHDMI(t, d, drv)

	plans, err := d.Prepare([][]Layer{
		{
			rgbLayer(FormatBGRA8888, 1280, 720),
			// cannot be scaled on the TV
			nv12Layer(1920, 1080, 400, 300),
			targetLayer(1280, 720),
		},
		{targetLayer(1280, 720)},
	})
	require.NoError(t, err)
	require.Len(t, plans, 2)

	primary, clone := plans[0], plans[1]
	require.True(t, primary.UseGPU)
	require.Equal(t, []LayerPlan{
		{Placement: PlaceOverlay, ClearFB: true},
		{Placement: PlaceGPU},
		{Placement: PlaceTarget},
	}, primary.Layers)

	require.True(t, clone.Mirrored)
	require.Nil(t, clone.Request)
	require.False(t, clone.Invalidate)
	require.Equal(t, []LayerPlan{{Placement: PlaceTarget}}, clone.Layers)

	req := primary.Request
	require.Equal(t, []hwcomp.ManagerInfo{
		{Index: DisplayPrimary, AlphaBlending: true},
		{Index: DisplayExternal, AlphaBlending: true},
	}, req.Managers)

	require.Len(t, req.Pipelines, 4)
	type pipe struct{ index, manager, z, buffer int }
	var got []pipe
	for _, p := range req.Pipelines {
		got = append(got, pipe{p.Index, p.Manager, p.ZOrder, p.Buffer})
	}
	require.Equal(t, []pipe{
		{0, DisplayPrimary, 1, 1},
		{1, DisplayPrimary, 0, 0},
		{3, DisplayExternal, 3, 0},
		{2, DisplayExternal, 2, 1},
	}, got)
	require.Equal(t, hwcomp.AddressPipeline, req.Pipelines[2].Addressing)

	require.Equal(t, 2, d.lastInt)
	require.Equal(t, 2, d.lastExt)

	gomock.InOrder(
		drv.EXPECT().Submit(&hwcomp.Request{Managers: []hwcomp.ManagerInfo{{Index: DisplayPrimary}}}).Return(nil),
		drv.EXPECT().Submit(req).Return(nil),
	)
	require.NoError(t, d.Commit(plans))
}

func TestPrepareAfterDetach(t *testing.T) {
	d, drv := newTestDevice(t, nil)
	attachHDMI(t, d, drv)

	contents := []Layer{rgbLayer(FormatBGRA8888, 1280, 720), targetLayer(1280, 720)}
	_, err := d.Prepare([][]Layer{contents, {targetLayer(1280, 720)}})
	require.NoError(t, err)
	require.Equal(t, 1, d.lastExt)

	require.NoError(t, d.HandleHotplug(false))

	plans, err := d.Prepare([][]Layer{contents})
	require.NoError(t, err)

	primary := d.primary()
	require.Equal(t, 3, primary.Composition.Avail)
	require.Equal(t, slotSize/2, int(primary.Composition.Mem1DBudget))

	managers := plans[0].Request.Managers
	require.Len(t, managers, 2)
	require.Equal(t, DisplayExternal, managers[1].Index)
	require.Zero(t, d.lastExt)

	plans, err = d.Prepare([][]Layer{contents})
	require.NoError(t, err)
	require.Len(t, plans[0].Request.Managers, 1)
	require.Equal(t, 4, primary.Composition.Avail)
}

func TestPrepareDropsMissingContents(t *testing.T) {
	d, _ := newTestDevice(t, nil)
	ext := putExternal(d, false)

	primary := []Layer{rgbLayer(FormatBGRA8888, 1280, 720), targetLayer(1280, 720)}
	external := []Layer{rgbLayer(FormatBGRA8888, 640, 480), rgbLayer(FormatBGRA8888, 320, 240)}

	plans, err := d.Prepare([][]Layer{primary, external})
	require.NoError(t, err)
	require.Len(t, plans, 2)
	require.Equal(t, 2, ext.Stats.Count)

	plans, err = d.Prepare([][]Layer{primary})
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Nil(t, ext.Contents())
	require.Zero(t, ext.Stats.Count)
	require.Equal(t, 1, d.primary().Stats.Count)
}

func TestIdle(t *testing.T) {
	d, drv := newTestDevice(t, nil)
	require.Equal(t, int64(250), d.IdleTimeout().Milliseconds())

	contents := [][]Layer{{
		rgbLayer(FormatBGRA8888, 1280, 720),
		nv12Layer(640, 360, 1280, 720),
		targetLayer(1280, 720),
	}}

	// nothing to release yet
	require.False(t, d.Idle())

	plans, err := d.Prepare(contents)
	require.NoError(t, err)
	require.False(t, plans[0].UseGPU)

	require.True(t, d.Idle())
	require.False(t, d.Idle())

	drv.EXPECT().Submit(gomock.Any()).Return(nil).AnyTimes()

	for i := 0; i < idleForcedFrames; i++ {
		plans, err = d.Prepare(contents)
		require.NoError(t, err)
		require.True(t, plans[0].UseGPU, "frame %d", i)
		require.NoError(t, d.Commit(plans))
	}

	plans, err = d.Prepare(contents)
	require.NoError(t, err)
	require.False(t, plans[0].UseGPU)
}

func TestIdleDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Policy.IdleTimeoutMS = 0
	d, _ := newTestDevice(t, cfg)

	d.lastInt = 3
	require.False(t, d.Idle())
	require.Zero(t, d.IdleTimeout())
}

func TestCommitCombinesErrors(t *testing.T) {
	d, drv := newTestDevice(t, nil)
	d.reset = true

	failed := &hwcomp.Request{SyncID: 1}
	drv.EXPECT().Submit(failed).Return(errors.Mark(errors.New("submit"), hwcomp.ErrSubmitFailed))
	drv.EXPECT().Submit(&hwcomp.Request{SyncID: 2}).Return(nil)

	err := d.Commit([]Plan{
		{Display: 0, Request: failed},
		{Display: 1},
		{Display: 1, Request: &hwcomp.Request{SyncID: 2}},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, hwcomp.ErrSubmitFailed))
	require.Contains(t, err.Error(), "display 0")
}

func TestCommitResetFailureIsNotFatal(t *testing.T) {
	d, drv := newTestDevice(t, nil)
	drv.EXPECT().Submit(gomock.Any()).Return(errors.New("busy"))

	require.NoError(t, d.Commit(nil))
	require.True(t, d.reset)
}

func TestDumpJSON(t *testing.T) {
	d, drv := newTestDevice(t, nil)
	attachHDMI(t, d, drv)

	_, err := d.Prepare([][]Layer{{rgbLayer(FormatBGRA8888, 1280, 720), targetLayer(1280, 720)}, nil})
	require.NoError(t, err)

	var dump struct {
		Limits struct {
			MaxDownscale    int
			Tiler1DSlotSize int
		}
		Policy struct {
			RGBOrder      bool
			ForceMemToMem bool
		}
		LastInternalPipelines int
		Displays              []struct {
			Index     int
			Type      string
			Mode      int
			Mirroring *struct {
				Enabled   bool
				Writeback string
			}
			Stats struct {
				Count      int
				Composable int
			}
			Pipelines []struct {
				Index int
			}
		}
	}
	require.NoError(t, json.Unmarshal(d.DumpJSON(), &dump))

	require.Equal(t, 4, dump.Limits.MaxDownscale)
	require.Equal(t, slotSize, dump.Limits.Tiler1DSlotSize)
	require.True(t, dump.Policy.RGBOrder)
	require.True(t, dump.Policy.ForceMemToMem)
	require.Equal(t, 1, dump.LastInternalPipelines)

	require.Len(t, dump.Displays, 2)
	require.Equal(t, "lcd", dump.Displays[0].Type)
	require.Equal(t, mode.NoMode, dump.Displays[0].Mode)
	require.Nil(t, dump.Displays[0].Mirroring)
	require.Equal(t, 1, dump.Displays[0].Stats.Count)
	require.Len(t, dump.Displays[0].Pipelines, 1)

	require.Equal(t, "hdmi", dump.Displays[1].Type)
	require.Equal(t, 1, dump.Displays[1].Mode)
	require.NotNil(t, dump.Displays[1].Mirroring)
	require.Equal(t, "mem2mem", dump.Displays[1].Mirroring.Writeback)
}
