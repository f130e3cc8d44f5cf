package compose

import (
	"fmt"

	"github.com/NeowayLabs/hwcomp"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// DumpJSON returns the state of the planner as a JSON document.
func (d *Device) DumpJSON() []byte {
	w := jwriter.NewWriter()
	d.WriteJSON(&w)
	return w.Bytes()
}

// WriteJSON writes the state of the planner to w.
func (d *Device) WriteJSON(w *jwriter.Writer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj := w.Object()
	defer obj.End()

	limits := obj.Name("Limits").Object()
	WriteLimits(&limits, &d.limits)
	limits.End()

	p := &d.cfg.Policy
	policy := obj.Name("Policy").Object()
	policy.Name("RGBOrder").Bool(p.RGBOrder)
	policy.Name("NV12Only").Bool(p.NV12Only)
	policy.Name("ForceGPU").Bool(p.ForceGPU)
	policy.Name("UpscaledNV12Limit").Float64(p.UpscaledNV12Limit)
	policy.Name("IdleTimeoutMS").Int(p.IdleTimeoutMS)
	policy.Name("ForceMemToMem").Bool(d.cfg.Writeback.ForceMemToMem)
	policy.End()

	obj.Name("SyncID").Int(int(d.syncID))
	obj.Name("LastInternalPipelines").Int(d.lastInt)
	obj.Name("LastExternalPipelines").Int(d.lastExt)
	obj.Name("IdleForcedFrames").Int(d.idleForce)
	obj.Name("PixelAspect").Float64(d.xpy)

	displays := obj.Name("Displays").Array()
	for _, ix := range []int{DisplayPrimary, DisplayExternal} {
		disp, ok := d.displays.Get(ix)
		if !ok {
			continue
		}
		o := displays.Object()
		writeDisplay(&o, disp)
		o.End()
	}
	displays.End()
}

// WriteLimits writes the platform limits as members of obj.
func WriteLimits(obj *jwriter.ObjectState, l *hwcomp.PlatformLimits) {
	obj.Name("MaxXDecim2D").Int(int(l.MaxXDecim2D))
	obj.Name("MaxYDecim2D").Int(int(l.MaxYDecim2D))
	obj.Name("MaxXDecim1D").Int(int(l.MaxXDecim1D))
	obj.Name("MaxYDecim1D").Int(int(l.MaxYDecim1D))
	obj.Name("FClk").Int(int(l.FClk))
	obj.Name("MinWidth").Int(int(l.MinWidth))
	obj.Name("IntegerScaleRatioLimit").Int(int(l.IntegerScaleRatioLimit))
	obj.Name("MaxWidth").Int(int(l.MaxWidth))
	obj.Name("MaxHeight").Int(int(l.MaxHeight))
	obj.Name("MaxDownscale").Int(int(l.MaxDownscale))
	obj.Name("Tiler1DSlotSize").Int(int(l.Tiler1DSlotSize))
	obj.Name("FBMemType").String(l.FBMemType.String())
}

func writeDisplay(obj *jwriter.ObjectState, disp *Display) {
	obj.Name("Index").Int(disp.Index)
	obj.Name("Role").String(disp.Role.String())
	obj.Name("Type").String(disp.Type.String())
	obj.Name("Channel").String(disp.Info.Channel.String())
	obj.Name("Mode").Int(disp.mode)

	cfg := disp.Config()
	c := obj.Name("Config").Object()
	c.Name("XRes").Int(cfg.XRes)
	c.Name("YRes").Int(cfg.YRes)
	c.Name("FPS").Int(cfg.FPS)
	c.Name("XDPI").Int(cfg.XDPI)
	c.Name("YDPI").Int(cfg.YDPI)
	c.End()

	fb := obj.Name("Framebuffer").Object()
	fb.Name("Width").Int(disp.FB.Width)
	fb.Name("Height").Int(disp.FB.Height)
	fb.Name("Format").String(disp.FB.Format.String())
	fb.End()

	t := &disp.Transform
	tr := obj.Name("Transform").Object()
	tr.Name("Rotation").Int(t.Rotation * 90)
	tr.Name("HFlip").Bool(t.HFlip)
	tr.Name("Scaling").Bool(t.Scaling)
	region := tr.Name("Region").Array()
	region.Int(t.Region.Left)
	region.Int(t.Region.Top)
	region.Int(t.Region.Right)
	region.Int(t.Region.Bottom)
	region.End()
	tr.End()

	if disp.Mirror != nil {
		m := obj.Name("Mirroring").Object()
		m.Name("Enabled").Bool(disp.Mirror.Enabled)
		m.Name("AvoidModeChange").Bool(disp.Mirror.AvoidModeChange)
		m.Name("Writeback").String(disp.Mirror.Writeback.String())
		m.Name("AdjXRes").Int(int(disp.Mirror.Modeset.AdjXRes))
		m.Name("AdjYRes").Int(int(disp.Mirror.Modeset.AdjYRes))
		m.End()
	}

	s := &disp.Stats
	stats := obj.Name("Stats").Object()
	stats.Name("Count").Int(s.Count)
	stats.Name("Framebuffer").Int(s.Framebuffer)
	stats.Name("Composable").Int(s.Composable)
	stats.Name("Scaled").Int(s.Scaled)
	stats.Name("RGB").Int(s.RGB)
	stats.Name("BGR").Int(s.BGR)
	stats.Name("NV12").Int(s.NV12)
	stats.Name("Dockable").Int(s.Dockable)
	stats.Name("Protected").Int(s.Protected)
	stats.Name("Mem1D").Int(int(s.Mem1D))
	stats.End()

	comp := &disp.Composition
	co := obj.Name("Composition").Object()
	co.Name("Base").Int(comp.Base)
	co.Name("Wanted").Int(comp.Wanted)
	co.Name("Avail").Int(comp.Avail)
	co.Name("Scaling").Int(comp.Scaling)
	co.Name("Used").Int(comp.Used)
	co.Name("Mem1DBudget").Int(int(comp.Mem1DBudget))
	co.Name("UseGPU").Bool(comp.UseGPU)
	co.Name("SwapRB").Bool(comp.SwapRB)
	co.End()

	pipes := obj.Name("Pipelines").Array()
	for i := range comp.Request.Pipelines {
		p := &comp.Request.Pipelines[i]
		o := pipes.Object()
		o.Name("Index").Int(p.Index)
		o.Name("Manager").Int(p.Manager)
		o.Name("ZOrder").Int(p.ZOrder)
		o.Name("Enabled").Bool(p.Enabled)
		o.Name("ColorMode").String(p.ColorMode.String())
		o.Name("Crop").String(windowString(p.Crop))
		o.Name("Window").String(windowString(p.Window))
		o.Name("Rotation").Int(int(p.Rotation) * 90)
		o.Name("Mirror").Bool(p.Mirror)
		o.Name("Buffer").Int(p.Buffer)
		o.End()
	}
	pipes.End()
}

func windowString(w hwcomp.Window) string {
	return fmt.Sprintf("%d,%d %dx%d", w.X, w.Y, w.W, w.H)
}
