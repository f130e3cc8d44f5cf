package compose

import "golang.org/x/exp/slog"

// assignPipelines adds the manager of disp to the request that carries its
// pipelines. A mirrored display shares the request of the primary so both
// outputs commit together.
func (d *Device) assignPipelines(disp *Display) {
	req := &disp.Composition.Request
	if disp.Mirroring() {
		req = &d.primary().Composition.Request
	}
	req.AppendManager(disp.Manager, disp.Composition.SwapRB)

	// release pipelines left on the manager of a detached display
	if d.lastExt > 0 && d.external() == nil {
		req.AppendManager(DisplayExternal, false)
		d.logger.Info("reclaiming external pipelines", slog.Int("pipelines", d.lastExt))
		d.lastExt = 0
	}
}

// pairing describes the mirroring pair disp belongs to.
func (d *Device) pairing(disp *Display) Pairing {
	ext := disp
	if disp.Role == RolePrimary {
		ext = d.external()
	}
	if !ext.Mirroring() {
		return Pairing{OnTV: disp.IsHDMI()}
	}

	clone := ext
	if disp == ext {
		clone = d.primary()
	}
	return Pairing{
		Mirroring:   true,
		PartnerMask: ext.Stats.ComposableMask,
		OnTV:        disp.IsHDMI() || clone.IsHDMI(),
		Transformed: ext.Transformed(),
	}
}
