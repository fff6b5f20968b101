// Command indicator-sim runs a scenario headlessly against in-memory markers
// and prints a summary of the run.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OCAP2/indicator/internal/config"
	"github.com/OCAP2/indicator/internal/host"
	"github.com/OCAP2/indicator/internal/markerview"
	"github.com/OCAP2/indicator/internal/scenario"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "indicator_sim"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "indicator-sim:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configDir := flags.StringP("config", "c", "", "directory containing "+config.FileName)
	scenarioPath := flags.StringP("scenario", "s", "", "scenario file to run")
	statusFile := flags.String("status", "", "status file rewritten every second")
	realtime := flags.Bool("realtime", false, "pace ticks to the wall clock")
	flags.String("telemetry", "", "telemetry backend, overrides the configuration")
	flags.String("log-level", "", "log level, overrides the configuration")
	showVersion := flags.BoolP("version", "v", false, "print the version and exit")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if *showVersion {
		fmt.Fprintf(out, "%s %s (%s)\n", AppName, Version, BuildDate)
		return nil
	}
	if *scenarioPath == "" {
		return errors.New("--scenario is required")
	}

	if *configDir != "" {
		if err := config.Load(*configDir); err != nil {
			return err
		}
	} else {
		config.LoadDefaults()
	}
	bindOverride(flags, "telemetry", "telemetry.type")
	bindOverride(flags, "log-level", "logLevel")

	scen, err := scenario.Load(*scenarioPath)
	if err != nil {
		return err
	}

	h, err := host.New(host.Options{
		AppName:    AppName,
		Scenario:   scen,
		Factory:    markerview.NewMemory(),
		StatusFile: *statusFile,
	})
	if err != nil {
		return err
	}

	runErr := h.RunToEnd(ctx, *realtime)
	if errors.Is(runErr, context.Canceled) {
		h.Logger.Warn("Run interrupted", "elapsed", h.Run.Elapsed())
		runErr = nil
	}

	report, closeErr := h.Close(context.Background())
	writeReport(out, scen.Name, report)
	return errors.Join(runErr, closeErr)
}

// bindOverride lets a flag win over the configuration file, but only when
// it was given.
func bindOverride(flags *pflag.FlagSet, name, key string) {
	if f := flags.Lookup(name); f != nil && f.Changed {
		_ = viper.BindPFlag(key, f)
	}
}

func writeReport(out io.Writer, name string, r host.Report) {
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(out, "scenario %s  session %s  wall time %s\n", name, r.Session, r.Elapsed.Round(time.Millisecond))
	for _, line := range r.Summary.Lines() {
		fmt.Fprintln(out, "  "+line)
	}
	if r.ExportPath != "" {
		fmt.Fprintf(out, "  telemetry written to %s\n", r.ExportPath)
	}
}
