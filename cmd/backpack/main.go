package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/backpack"
	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/env"
	fx "github.com/robotalks/backpack/pkg/framework"
	"github.com/robotalks/backpack/pkg/hal"
	"github.com/robotalks/backpack/pkg/stk500"
	"github.com/robotalks/backpack/pkg/transport/dial"
	"github.com/robotalks/backpack/pkg/vrx"
)

var flashImage string

func init() {
	config.SetupFlags()
	flag.StringVar(&flashImage, "flash", flashImage, "Raw firmware image to program into the co-processor at start")
}

func mustPin(name string) hal.Pin {
	pin, err := hal.OpenPin(name)
	if err != nil {
		glog.Exitf("open pin: %v", err)
	}
	return pin
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.NewDevice()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	local := env.LocalAddress()
	if conf.Link.Address != "" {
		local, _ = config.ParseAddress(conf.Link.Address)
	}
	glog.Infof("%s: local address %s", conf.Name, local)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := hal.NewHostClock()
	settings := config.LoadSettings(config.OpenFileStore(conf.SettingsPath))

	var runners []fx.Runnable
	opts := backpack.Options{
		Settings: settings,
		// The supervisor restarts the process.
		Rebooter: backpack.RebootFunc(func() error {
			glog.Info("restarting")
			cancel()
			return nil
		}),
		ButtonActiveLow: conf.UI.ButtonActiveLow,
	}
	if conf.UI.Button != "" {
		opts.Button = mustPin(conf.UI.Button)
	}
	if conf.UI.LED != "" {
		opts.LED = mustPin(conf.UI.LED)
	}

	link, err := dial.Open(conf.Link.URL, local)
	if err != nil {
		glog.Exitf("link: %v", err)
	}
	opts.Link = link

	if kind := conf.VRX.Kind; kind != "" {
		deps := vrx.Deps{
			Clock:     clock,
			PinSelect: mustPin(conf.VRX.PinSelect),
			PinClock:  mustPin(conf.VRX.PinClock),
			PinData:   mustPin(conf.VRX.PinData),
			Settings:  settings,
			Config:    conf.VRX,
		}
		if conf.VRX.Serial != "" {
			port, err := hal.OpenSerial(conf.VRX.Serial, conf.VRX.Baud)
			if err != nil {
				glog.Exitf("vrx serial: %v", err)
			}
			deps.Port = port
			runners = append(runners, fx.NamedRun("serial.vrx", port))
		}
		if opts.Adapter, err = vrx.New(kind, deps); err != nil {
			glog.Exitf("vrx: %v", err)
		}
	}

	if conf.Flasher.Serial != "" {
		port, err := hal.OpenSerial(conf.Flasher.Serial, conf.Flasher.Baud)
		if err != nil {
			glog.Exitf("flasher serial: %v", err)
		}
		runners = append(runners, fx.NamedRun("serial.flasher", port))
		opts.Flasher = stk500.New(port, clock,
			mustPin(conf.Flasher.PinReset), mustPin(conf.Flasher.PinBoot),
			stk500.WithFlash(conf.Flasher.FlashSize, conf.Flasher.PageSize),
			stk500.WithSync(conf.Flasher.SyncAttempts, conf.Flasher.SyncTimeoutMs),
			stk500.WithVerify(conf.Flasher.Verify),
			stk500.WithProgress(func(p stk500.Progress) {
				glog.V(1).Infof("flash %s %d/%d", p.Phase, p.Written, p.Total)
			}),
			stk500.WithDone(func(r stk500.Result) {
				if r.OK() {
					glog.Infof("flash done, %d bytes", r.Written)
				} else {
					glog.Errorf("flash failed in %s: %v", r.Phase, r.Err)
				}
			}))
	}

	app := backpack.New(clock, opts)
	app.Loop.AddRunnable(runners...)

	if flashImage != "" {
		image, err := os.ReadFile(flashImage)
		if err != nil {
			glog.Exitf("flash image: %v", err)
		}
		go func() {
			if err := <-app.Flash(image, 0); err != nil {
				glog.Errorf("flash: %v", err)
			}
		}()
	}

	if err := fx.NewRunnerWith(ctx).HandleSignals().Go(app.Loop).Wait(); err != nil {
		glog.Exit(err)
	}
}
