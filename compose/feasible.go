package compose

import "github.com/NeowayLabs/hwcomp/config"

// Pairing is what the feasibility tests need to know about the mirroring
// pair a display belongs to.
type Pairing struct {
	// Mirroring is set when the display is either side of an active clone.
	Mirroring bool
	// PartnerMask is the composable mask of the external display.
	PartnerMask uint64
	// OnTV is set when the display or its clone is a TV.
	OnTV bool
	// Transformed is set when the cloned output rotates or flips.
	Transformed bool
}

func (p *Pairing) partnerComposable(i int) bool {
	return i >= 0 && i < MaxMaskedLayers && p.PartnerMask&(1<<uint(i)) != 0
}

// IsLayerAdmissible reports whether layer i, found composable or not in
// stats, can take a pipeline of the display comp belongs to.
func IsLayerAdmissible(l *Layer, i int, stats *LayerStatistics, comp *Composition, pair *Pairing, policy *config.Policy) bool {
	if pair.Mirroring && !pair.partnerComposable(i) {
		return false
	}

	wrongOrder := l.BGR()
	if comp.SwapRB {
		wrongOrder = l.RGB()
	}

	return stats.IsComposable(i) &&
		// only NV12 can be rotated for the clone
		(!pair.Transformed || l.NV12()) &&
		(!policy.NV12Only || !comp.UseGPU || l.NV12()) &&
		(!wrongOrder || !policy.RGBOrder) &&
		!(pair.OnTV && l.BGR())
}

// CanComposeAllLayers reports whether every layer of the frame fits the
// pipelines of the display. forced is set while GPU composition is forced.
func CanComposeAllLayers(stats *LayerStatistics, comp *Composition, pair *Pairing, policy *config.Policy, forced bool) bool {
	if pair.Mirroring && stats.ComposableMask&pair.PartnerMask != stats.ComposableMask {
		return false
	}

	return !forced &&
		// a pipeline is needed to get the sync object
		stats.Composable > 0 &&
		stats.Composable <= comp.Avail &&
		stats.Composable == stats.Count &&
		stats.Scaled <= comp.Scaling &&
		stats.NV12 <= comp.Scaling &&
		stats.Mem1D <= comp.Mem1DBudget &&
		(!pair.Transformed || stats.NV12 == stats.Composable) &&
		(stats.BGR == 0 || (stats.RGB == 0 && !pair.OnTV) || !policy.RGBOrder) &&
		(!policy.NV12Only || (stats.BGR == 0 && stats.RGB == 0))
}
