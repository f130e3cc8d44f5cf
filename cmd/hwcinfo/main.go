// Command hwcinfo prints the platform limits, the attached displays with
// their mode databases and the planner state of the compositor driver.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/NeowayLabs/hwcomp"
	"github.com/NeowayLabs/hwcomp/compose"
	"github.com/NeowayLabs/hwcomp/config"
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"
)

func parseSize(s string) (compose.Framebuffer, error) {
	var fb compose.Framebuffer
	if s == "" {
		return fb, nil
	}
	var rest string
	n, _ := fmt.Sscanf(s, "%dx%d%s", &fb.Width, &fb.Height, &rest)
	if n != 2 || fb.Width <= 0 || fb.Height <= 0 {
		return fb, errors.Newf("invalid framebuffer size %q, want WxH", s)
	}
	return fb, nil
}

func writeDisplay(arr *jwriter.ArrayState, drv hwcomp.Driver, ix int) error {
	info, err := drv.DisplayInfo(ix)
	if err != nil {
		return err
	}
	modes, err := drv.ModeDatabase(ix, hwcomp.MaxModeDBLength)
	if err != nil {
		return err
	}

	obj := arr.Object()
	defer obj.End()

	obj.Name("Index").Int(ix)
	obj.Name("Channel").String(info.Channel.String())
	obj.Name("XRes").Int(int(info.Timings.XRes))
	obj.Name("YRes").Int(int(info.Timings.YRes))
	obj.Name("PixelClock").Int(int(info.Timings.PixelClock))
	obj.Name("WidthMM").Int(int(info.WidthMM))
	obj.Name("HeightMM").Int(int(info.HeightMM))
	obj.Name("OverlaysAvailable").Int(int(info.OverlaysAvailable))

	list := obj.Name("Modes").Array()
	for i := range modes {
		m := &modes[i]
		o := list.Object()
		o.Name("XRes").Int(int(m.XRes))
		o.Name("YRes").Int(int(m.YRes))
		o.Name("Refresh").Int(int(m.Refresh))
		o.Name("PixelClock").Int(int(m.PixelClock()))
		o.Name("Interlaced").Bool(m.Interlaced())
		o.End()
	}
	list.End()
	return nil
}

func run(logger *slog.Logger, device, cfgPath, fbSize string, hotplug bool) error {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath, logger)
		if err != nil {
			return err
		}
	}

	fb, err := parseSize(fbSize)
	if err != nil {
		return err
	}

	session, err := hwcomp.OpenPath(logger, device)
	if err != nil {
		return err
	}
	defer session.Close()

	dev, err := compose.New(logger, session, cfg, fb)
	if err != nil {
		return errors.Wrap(err, "cannot create planner")
	}

	if hotplug {
		if err := dev.HandleHotplug(true); err != nil {
			logger.Warn("no external display", slog.String("error", err.Error()))
		}
	}

	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("Session").String(session.ID().String())

	displays := obj.Name("Displays").Array()
	for _, ix := range []int{compose.DisplayPrimary, compose.DisplayExternal} {
		if err := writeDisplay(&displays, session, ix); err != nil {
			logger.Info("display not available", slog.Int("display", ix), slog.String("error", err.Error()))
		}
	}
	displays.End()

	dev.WriteJSON(obj.Name("Planner"))
	obj.End()

	if err := w.Error(); err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(w.Bytes(), '\n'))
	return err
}

func main() {
	var (
		device  = flag.String("device", hwcomp.DevicePath, "compositor driver device")
		cfgPath = flag.String("config", "", "policy configuration file")
		fbSize  = flag.String("fb", "", "primary framebuffer size, WxH (default: panel size)")
		hotplug = flag.Bool("hotplug", false, "attach the external display and set up mirroring")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *device, *cfgPath, *fbSize, *hotplug); err != nil {
		logger.Error("hwcinfo failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
