// Command vkres-sim replays scene loading workloads against the resource
// arenas and the growable descriptor allocator, without a GPU.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/celer/vkres/arena"
	"github.com/celer/vkres/descriptor"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	workloadFlag = &cli.StringFlag{
		Name:    "workload",
		Aliases: []string{"w"},
		Usage:   "TOML workload file; the built-in workload is used when empty",
	}
	roundsFlag = &cli.IntFlag{
		Name:  "rounds",
		Usage: "override the number of rounds in the workload",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log pool creation and slot reuse",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vkres-sim",
		Usage: "replay scene loading workloads against vkres arenas and descriptor pools",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "replay a workload and print per-round statistics",
				Flags:  []cli.Flag{workloadFlag, roundsFlag, verboseFlag},
				Action: run,
			},
			{
				Name:   "defaults",
				Usage:  "print the built-in workload as TOML",
				Action: printDefaults,
			},
		},
	}
}

func run(ctx *cli.Context) error {
	w := defaultWorkload()
	if path := ctx.String(workloadFlag.Name); path != "" {
		var err error
		if w, err = loadWorkload(path); err != nil {
			return err
		}
	}
	if ctx.IsSet(roundsFlag.Name) {
		w.Rounds = ctx.Int(roundsFlag.Name)
	}
	if err := w.validate(); err != nil {
		return err
	}

	log, err := newLogger(ctx.Bool(verboseFlag.Name))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	arena.SetLogger(log.Named("arena"))
	descriptor.SetLogger(log.Named("descriptor"))

	sim, err := newSimulator(w, log)
	if err != nil {
		return err
	}
	return sim.run(ctx.App.Writer)
}

func printDefaults(ctx *cli.Context) error {
	return toml.NewEncoder(ctx.App.Writer).Encode(defaultWorkload())
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
