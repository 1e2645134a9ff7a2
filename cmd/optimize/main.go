// Command optimize searches metabolism, food and population parameters that
// keep bacteria and predators coexisting, and saves the best set as a named
// profile the simulator can load with -profile-file.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	baseProfile := flag.String("profile", "", "Embedded profile applied to the base config ("+fmt.Sprint(config.Profiles())+")")
	maxSimSec := flag.Float64("max-sim-sec", 1800, "Simulated seconds per run (cap)")
	seeds := flag.Int("seeds", 3, "Seeded runs per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	profileName := flag.String("profile-name", "optimized", "Name of the profile written to best_profile.yaml")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := run(*configPath, *baseProfile, *outputDir, *profileName, *maxSimSec, *seeds, *maxEvals, *population); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, baseProfile, outputDir, profileName string, maxSimSec float64, seeds, maxEvals, population int) error {
	if outputDir == "" {
		return fmt.Errorf("-output is required")
	}
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	base := config.Cfg()
	if baseProfile != "" {
		if err := base.ApplyProfile(baseProfile); err != nil {
			return err
		}
	}

	out, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer out.Close()

	params := NewParamVector()
	s := newSearch(params, NewFitnessEvaluator(params, maxSimSec, evalSeeds(seeds), base), maxEvals, population, out.Dir())
	best, err := s.run(params.Extract(base))
	if err != nil {
		return err
	}
	return s.report(out, base, best, profileName)
}

// evalSeeds returns n fixed seeds so every evaluation faces the same worlds.
func evalSeeds(n int) []int64 {
	seeds := make([]int64, max(n, 1))
	for i := range seeds {
		seeds[i] = int64(i)*1000 + 42
	}
	return seeds
}
