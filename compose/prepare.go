package compose

import (
	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/mode"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// ErrNotAttached is returned for contents given to a display that is not
// attached.
var ErrNotAttached = errors.New("display not attached")

const (
	// PlaceGPU layers are composed into the framebuffer.
	PlaceGPU Placement = iota
	// PlaceOverlay layers are shown on a pipeline.
	PlaceOverlay
	// PlaceTarget is the framebuffer target layer itself.
	PlaceTarget
)

type (
	Placement int

	LayerPlan struct {
		Placement Placement
		// ClearFB is set on overlay layers the GPU has to leave a hole for.
		ClearFB bool
	}

	// Plan is the composition decided for one display.
	Plan struct {
		Display int
		Layers  []LayerPlan // one per layer of the contents

		UseGPU   bool
		Mirrored bool

		// Request is the driver request to submit, nil for displays whose
		// pipelines travel in the request of the primary display.
		Request *hwcomp.Request
		// Buffers maps the buffers of Request to layers, -1 for the
		// framebuffer.
		Buffers []int

		// Invalidate asks for a redraw once pipelines released by the other
		// display are available.
		Invalidate bool
	}
)

func (p Placement) String() string {
	switch p {
	case PlaceOverlay:
		return "overlay"
	case PlaceTarget:
		return "target"
	}
	return "gpu"
}

// IsComposable reports whether l can be shown on a pipeline of the primary
// display, before any policy is applied.
func (d *Device) IsComposable(l *Layer) bool {
	return IsComposable(l, &d.primary().Info, &d.limits)
}

// Prepare plans the frame. contents holds the layer list of each display
// by index, a nil list or a missing index leaves the display out of the
// frame.
func (d *Device) Prepare(contents [][]Layer) ([]Plan, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.displays.Iter(func(_ int, disp *Display) bool {
		disp.contents = nil
		return false
	})

	var errs error
	var active []*Display
	for ix, layers := range contents {
		disp, ok := d.displays.Get(ix)
		if !ok {
			if layers != nil {
				errs = errors.CombineErrors(errs, errors.Wrapf(ErrNotAttached, "display %d", ix))
			}
			continue
		}
		disp.contents = layers
		if layers != nil {
			active = append(active, disp)
		}
	}

	d.gatherStatistics()
	d.reserveOverlays()

	plans := make([]Plan, 0, len(active))
	for _, disp := range active {
		if disp.Mirroring() {
			if d.primary().contents == nil {
				continue
			}
			plans = append(plans, d.prepareClone(disp))
			continue
		}
		plans = append(plans, d.prepareDisplay(disp))
	}
	return plans, errs
}

// gatherStatistics accounts the contents of every attached display. A
// mirroring display is accounted over the primary contents, as seen by its
// own output.
func (d *Device) gatherStatistics() {
	primary := d.primary()
	d.displays.Iter(func(_ int, disp *Display) bool {
		layers := disp.contents
		if disp.Mirroring() {
			layers = primary.contents
		}

		disp.Stats.Clear()
		for i := range layers {
			l := &layers[i]
			disp.Stats.Add(i, l, IsComposable(l, &disp.Info, &d.limits), primary.Transform.Scaling)
		}
		return false
	})
}

func (d *Device) prepareDisplay(disp *Display) Plan {
	comp := &disp.Composition
	stats := &disp.Stats
	policy := &d.cfg.Policy
	layers := disp.contents
	forced := d.forced()

	plan := Plan{
		Display: disp.Index,
		Layers:  make([]LayerPlan, len(layers)),
	}
	for i := range layers {
		if layers[i].FramebufferTarget {
			plan.Layers[i].Placement = PlaceTarget
		}
	}

	comp.Request.Reset(d.syncID)
	d.syncID++
	comp.Buffers = comp.Buffers[:0]

	pair := d.pairing(disp)
	if CanComposeAllLayers(stats, comp, &pair, policy, forced) {
		comp.UseGPU = false
		comp.SwapRB = stats.BGR != 0
	} else {
		comp.UseGPU = true
		comp.SwapRB = disp.FB.Format.IsBGR()
	}
	// HDMI managers cannot swap red and blue
	if disp.IsHDMI() {
		comp.SwapRB = false
	}

	pipes := comp.Request.Pipelines
	pipe := comp.Base
	if comp.UseGPU {
		// the framebuffer goes on the first pipeline
		pipes = append(pipes, hwcomp.PipelineSetup{})
		pipe++
	}

	z, fbZ := 0, -1
	scaledGFX := false
	var mem uint32

	for i := range layers {
		l := &layers[i]

		if len(pipes) < comp.Avail &&
			IsLayerAdmissible(l, i, stats, comp, &pair, policy) &&
			(!forced || l.Protected() || l.UpscaledNV12(policy.UpscaledNV12Limit)) &&
			mem+l.Mem1D() <= comp.Mem1DBudget &&
			// a blended layer cannot sit in the middle of the framebuffer stack
			!(l.Blended() && fbZ >= 0) {

			mem += l.Mem1D()
			plan.Layers[i] = LayerPlan{
				Placement: PlaceOverlay,
				ClearFB:   comp.UseGPU && !l.Blended(),
			}

			p := pipelineForLayer(l, z)
			p.Index = pipe
			p.Manager = disp.Manager
			p.Addressing = hwcomp.AddressLayer
			p.Buffer = len(comp.Buffers)
			comp.Buffers = append(comp.Buffers, i)

			// the GFX pipeline cannot scale
			if disp.Role == RolePrimary {
				switch {
				case len(pipes) == 0 && !disp.Transform.Scaling:
					scaledGFX = l.Scaled() || l.NV12()
				case scaledGFX && !l.Scaled() && !l.NV12():
					p.Index, pipes[0].Index = pipes[0].Index, p.Index
					scaledGFX = false
				}
			}

			pipes = append(pipes, p)
			pipe++
			z++
		} else if comp.UseGPU {
			if fbZ < 0 {
				fbZ = z
				z++
			} else {
				// move the framebuffer up by lowering the pipelines above it
				for ; fbZ < z-1; fbZ++ {
					pipes[1+fbZ].ZOrder--
				}
			}
		}
	}

	if scaledGFX && pipe < hwcomp.MaxPipelines {
		pipes[0].Index = pipe
	}

	if comp.UseGPU {
		if fbZ < 0 {
			fbZ = z
			z++
		}
		fb := newPipeline(fbZ, disp.FB.Format, true, disp.FB.Width, disp.FB.Height)
		fb.Index = comp.Base
		fb.Manager = disp.Manager
		fb.PreMultAlpha = true
		fb.Addressing = hwcomp.AddressLayer
		fb.Buffer = len(comp.Buffers)
		comp.Buffers = append(comp.Buffers, -1)
		pipes[0] = fb
	}

	// nothing is shown while the mode of an HDMI primary is not set
	if disp.Role == RolePrimary && disp.IsHDMI() && disp.mode == mode.NoMode {
		pipes = pipes[:0]
	}

	comp.Used = len(pipes)
	if disp.Role == RolePrimary {
		d.lastInt = comp.Used
	} else {
		d.lastExt = comp.Used
	}

	if disp.Transform.Scaling {
		for i := range pipes {
			adjustToDisplay(&disp.Transform, &pipes[i])
		}
	}

	comp.Request.Pipelines = pipes
	d.verify(disp, z)
	d.assignPipelines(disp)

	plan.UseGPU = comp.UseGPU
	plan.Request = &comp.Request
	plan.Buffers = comp.Buffers
	plan.Invalidate = disp.Role != RolePrimary && needsInvalidate(comp, stats)

	d.logger.Debug("frame prepared",
		slog.Int("display", disp.Index),
		slog.Int("sync_id", int(comp.Request.SyncID)),
		slog.Bool("gpu", comp.UseGPU),
		slog.Int("layers", stats.Count),
		slog.Int("composable", stats.Composable),
		slog.Int("scaled", stats.Scaled),
		slog.Int("rgb", stats.RGB),
		slog.Int("bgr", stats.BGR),
		slog.Int("nv12", stats.NV12),
		slog.Int("avail", comp.Avail),
		slog.Int("used", comp.Used),
		slog.Int("last_int", d.lastInt),
		slog.Int("last_ext", d.lastExt))
	return plan
}

// prepareClone shows the pipelines of the primary display on the
// mirroring display ext.
func (d *Device) prepareClone(ext *Display) Plan {
	primary := d.primary()
	pc := &primary.Composition
	req := &pc.Request

	for ix := 0; ix < pc.Used; ix++ {
		if len(req.Pipelines) >= hwcomp.MaxPipelines {
			d.logger.Error("cannot clone pipeline",
				slog.Int("pipeline", ix),
				slog.Int("used", len(req.Pipelines)))
			break
		}

		p := req.Pipelines[ix]
		// taken from the top
		p.Index = hwcomp.MaxPipelines - 1 - (len(req.Pipelines) - pc.Used)
		p.Manager = ext.Manager
		p.Addressing = hwcomp.AddressPipeline
		p.Buffer = ix
		// z-orders stay distinct across both managers
		p.ZOrder += pc.Used

		adjustToDisplay(&ext.Transform, &p)
		req.Pipelines = append(req.Pipelines, p)
	}

	plan := Plan{
		Display:  ext.Index,
		Layers:   make([]LayerPlan, len(ext.contents)),
		UseGPU:   pc.UseGPU,
		Mirrored: true,
	}
	for i := range ext.contents {
		if ext.contents[i].FramebufferTarget {
			plan.Layers[i].Placement = PlaceTarget
		} else {
			plan.Layers[i].Placement = PlaceOverlay
		}
	}

	ec := &ext.Composition
	ec.SwapRB = pc.SwapRB && !ext.IsHDMI()
	ec.Used = 0
	d.assignPipelines(ext)
	d.lastExt = pc.Used

	plan.Invalidate = needsInvalidate(ec, &ext.Stats)
	return plan
}

// needsInvalidate reports whether a display got fewer pipelines than it
// wanted while it has protected layers or none at all.
func needsInvalidate(comp *Composition, stats *LayerStatistics) bool {
	return comp.Wanted > 0 && comp.Avail < comp.Wanted && (stats.Protected > 0 || comp.Avail == 0)
}

// pipelineForLayer sets up a pipeline at z-order z showing l.
func pipelineForLayer(l *Layer, z int) hwcomp.PipelineSetup {
	b := l.Buffer
	p := newPipeline(z, b.Format, l.Blended(), b.Width, b.Height)

	rot := 0
	if l.Transform&FlipH != 0 {
		p.Mirror = true
	}
	if l.Transform&FlipV != 0 {
		rot = 2
		p.Mirror = !p.Mirror
	}
	if l.Transform&Rot90 != 0 {
		if p.Mirror {
			rot--
		} else {
			rot++
		}
	}
	p.Rotation = uint8(rot & 3)
	p.PreMultAlpha = l.Blending == BlendingPremult

	p.Window = hwcomp.Window{
		X: l.DisplayFrame.Left,
		Y: l.DisplayFrame.Top,
		W: l.DisplayFrame.W(),
		H: l.DisplayFrame.H(),
	}
	p.Crop = hwcomp.Window{
		X: l.SourceCrop.Left,
		Y: l.SourceCrop.Top,
		W: l.SourceCrop.W(),
		H: l.SourceCrop.H(),
	}
	return p
}

// newPipeline sets up an enabled pipeline showing the whole of a w x h
// buffer of format f at z-order z.
func newPipeline(z int, f Format, blended bool, w, h int) hwcomp.PipelineSetup {
	return hwcomp.PipelineSetup{
		ZOrder:      z,
		Enabled:     true,
		ColorMode:   f.ColorMode(blended),
		Width:       w,
		Height:      h,
		Stride:      align(w, hwAlign) * f.BPP() / 8,
		Crop:        hwcomp.Window{W: w, H: h},
		Window:      hwcomp.Window{W: w, H: h},
		GlobalAlpha: 255,
	}
}

// verify logs pipelines of disp sharing a z-order or an index.
func (d *Device) verify(disp *Display, z int) {
	pipes := disp.Composition.Request.Pipelines
	if z != len(pipes) && len(pipes) > 0 || len(pipes) > hwcomp.MaxPipelines {
		d.logger.Error("z-orders do not match pipelines",
			slog.Int("display", disp.Index),
			slog.Int("z", z),
			slog.Int("pipelines", len(pipes)))
	}

	var zs, ixs uint32
	for i := range pipes {
		p := &pipes[i]
		if zs&(1<<uint(p.ZOrder)) != 0 {
			d.logger.Error("z-order used multiple times", slog.Int("display", disp.Index), slog.Int("z", p.ZOrder))
		}
		if ixs&(1<<uint(p.Index)) != 0 {
			d.logger.Error("pipeline used multiple times", slog.Int("display", disp.Index), slog.Int("pipeline", p.Index))
		}
		zs |= 1 << uint(p.ZOrder)
		ixs |= 1 << uint(p.Index)
	}
}
