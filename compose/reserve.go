package compose

import "github.com/NeowayLabs/hwcomp"

// nonScalingPipelines is the number of pipelines without a scaler, the GFX
// pipeline.
const nonScalingPipelines = 1

// reserveOverlays splits the pipelines between the attached displays for
// the coming frame. Pipelines a display still used last frame cannot be
// given to the other one yet, they have to be released first.
func (d *Device) reserveOverlays() {
	primary := d.primary()
	ext := d.external()

	base := hwcomp.PipelineGFX
	total := hwcomp.MaxPipelines
	nonScaling := nonScalingPipelines

	// a scaled framebuffer cannot use the GFX pipeline
	if primary.Transform.Scaling {
		base = hwcomp.PipelineVideo1
		total -= nonScaling
		nonScaling = 0
	}

	maxPrimary := max(total-d.lastExt, 0)
	maxExternal := max(total-d.lastInt, 0)

	pc := &primary.Composition
	pc.Base = base
	pc.Wanted = total
	pc.Avail = maxPrimary
	pc.Scaling = max(pc.Avail-nonScaling, 0)
	pc.Used = 0
	pc.Mem1DBudget = d.mem1DBudget()

	if ext == nil {
		return
	}

	// the framebuffer and every protected layer need a pipeline
	minPrimary := min(1+primary.Stats.Protected, total)

	pc.Wanted = max(total/2, minPrimary)
	pc.Avail = min(maxPrimary, pc.Wanted)

	ec := &ext.Composition
	ec.Wanted = total - pc.Wanted
	ec.Avail = min(maxExternal, ec.Wanted)
	ec.Scaling = ec.Avail
	ec.Used = 0
	ec.Base = hwcomp.MaxPipelines - ec.Avail
	ec.Mem1DBudget = pc.Mem1DBudget

	// everything shown on the primary has to be cloned
	if ext.Mirroring() && ec.Avail > 0 && pc.Avail > ec.Avail {
		pc.Avail = max(minPrimary, ec.Avail)
	}
}

// mem1DBudget is the 1D memory the displays can use this frame. The slot
// is shared while the external display shows its own contents.
func (d *Device) mem1DBudget() uint32 {
	budget := d.limits.Tiler1DSlotSize
	ext := d.external()
	if d.lastExt > 0 || (ext != nil && !ext.Mirroring()) {
		budget >>= 1
	}
	return budget
}
