// Command dawmonitor streams a mixer session's master bus to the
// default audio output device in real time.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/waveforge/dawcore/config"
	"github.com/waveforge/dawcore/device"
	"github.com/waveforge/dawcore/mixer"
)

func main() {
	var (
		configPath      = pflag.StringP("config", "c", "", "Session config YAML path. Empty uses built-in defaults.")
		framesPerBuffer = pflag.IntP("frames", "f", 512, "Frames per callback buffer.")
		help            = pflag.Bool("help", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Monitor a mixer session's master bus on the default output device.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	manager := mixer.NewManager(cfg.SampleRate, cfg.MasterChannels)

	monitor, err := device.NewMonitor(manager, cfg.SampleRate, *framesPerBuffer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open monitor: %v\n", err)
		os.Exit(1)
	}
	defer monitor.Close()

	if err := monitor.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "start monitor: %v\n", err)
		os.Exit(1)
	}
	defer monitor.Stop()

	fmt.Println("monitoring master bus, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
