// Command indicator-demo plays a scenario in a window and draws the
// indicator markers the engine produces.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/pflag"

	"github.com/OCAP2/indicator/internal/config"
	"github.com/OCAP2/indicator/internal/host"
	"github.com/OCAP2/indicator/internal/markerview"
	"github.com/OCAP2/indicator/internal/scenario"
)

var AppName string = "indicator_demo"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "indicator-demo:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	configDir := flags.StringP("config", "c", "", "directory containing "+config.FileName)
	scenarioPath := flags.StringP("scenario", "s", "", "scenario file to play")
	if err := flags.Parse(args); err != nil {
		return err
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

	scen, err := scenario.Load(*scenarioPath)
	if err != nil {
		return err
	}

	views := markerview.NewMemory()
	h, err := host.New(host.Options{
		AppName:  AppName,
		Scenario: scen,
		Factory:  views,
	})
	if err != nil {
		return err
	}

	w, hgt := h.Run.Camera().Viewport()
	g := &Game{host: h, views: views, width: int(w), height: int(hgt)}

	ebiten.SetWindowSize(g.width, g.height)
	ebiten.SetWindowTitle("indicator demo: " + scen.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	runErr := ebiten.RunGame(g)
	if errors.Is(runErr, ebiten.Termination) {
		runErr = nil
	}

	report, closeErr := h.Close(context.Background())
	for _, line := range report.Summary.Lines() {
		fmt.Println(line)
	}
	return errors.Join(runErr, closeErr)
}
