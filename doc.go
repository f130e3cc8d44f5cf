// Package hwcomp provides a library to interact with the display subsystem
// compositor driver (dsscomp) found on OMAP4 class SoCs.
// The driver exposes a fixed set of overlay pipelines that can scale, rotate
// and blend layers without touching the GPU. This package queries the
// platform limits and display information of the driver and submits
// composition requests. The per-frame planning over those limits lives in
// the compose package.
package hwcomp
