package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/telemetry"
)

// trial is one row of trials.csv.
type trial struct {
	Eval        int     `csv:"eval"`
	Fitness     float64 `csv:"fitness"`
	SurvivalSec float64 `csv:"survival_sec"`
	Quality     float64 `csv:"quality"`
	FailedSeeds int     `csv:"failed_seeds"`
	WallSec     float64 `csv:"wall_sec"`
}

// trialParam is one row of trial_params.csv: the value a trial used for one
// parameter.
type trialParam struct {
	Eval  int     `csv:"eval"`
	Name  string  `csv:"name"`
	Value float64 `csv:"value"`
}

// search runs CMA-ES over the normalized parameter space and keeps a log of
// every trial.
type search struct {
	params   *ParamVector
	eval     *FitnessEvaluator
	maxEvals int
	popSize  int
	dir      string

	mu          sync.Mutex
	start       time.Time
	trials      []trial
	values      []trialParam
	bestFitness float64
	bestX       []float64
}

func newSearch(params *ParamVector, eval *FitnessEvaluator, maxEvals, popSize int, dir string) *search {
	if popSize <= 0 {
		popSize = 4 + int(3*math.Log(float64(params.Dim())))
	}
	return &search{
		params:      params,
		eval:        eval,
		maxEvals:    maxEvals,
		popSize:     popSize,
		dir:         dir,
		bestFitness: math.Inf(1),
	}
}

// objective evaluates a normalized point and records it as a trial.
func (s *search) objective(x []float64) float64 {
	raw := s.params.Clamp(s.params.Denormalize(x))
	ev := s.eval.Evaluate(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start.IsZero() {
		s.start = time.Now()
	}
	n := len(s.trials) + 1
	elapsed := time.Since(s.start)
	s.trials = append(s.trials, trial{
		Eval:        n,
		Fitness:     ev.Fitness,
		SurvivalSec: ev.SurvivalSec,
		Quality:     ev.Quality,
		FailedSeeds: ev.Failed,
		WallSec:     elapsed.Seconds(),
	})
	for i, spec := range s.params.Specs {
		s.values = append(s.values, trialParam{Eval: n, Name: spec.Name, Value: raw[i]})
	}
	if ev.Fitness < s.bestFitness {
		s.bestFitness = ev.Fitness
		s.bestX = raw
	}
	if err := s.saveTrials(); err != nil {
		slog.Warn("trial_log_failed", "error", err)
	}

	eta := time.Duration(0)
	if n < s.maxEvals {
		eta = elapsed / time.Duration(n) * time.Duration(s.maxEvals-n)
	}
	slog.Info("trial",
		"eval", n,
		"max_evals", s.maxEvals,
		"survival_sec", ev.SurvivalSec,
		"quality", ev.Quality,
		"best_fitness", s.bestFitness,
		"elapsed", elapsed.Round(time.Second).String(),
		"eta", eta.Round(time.Second).String(),
	)
	return ev.Fitness
}

// saveTrials rewrites both trial logs so they stay current if the search is
// interrupted.
func (s *search) saveTrials() error {
	if s.dir == "" {
		return nil
	}
	if err := writeCSV(filepath.Join(s.dir, "trials.csv"), &s.trials); err != nil {
		return err
	}
	return writeCSV(filepath.Join(s.dir, "trial_params.csv"), &s.values)
}

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// run minimizes from the raw starting point and returns the best raw values
// seen in any trial.
func (s *search) run(init []float64) ([]float64, error) {
	problem := optimize.Problem{Func: s.objective}
	settings := &optimize.Settings{
		FuncEvaluations: s.maxEvals,
		Concurrent:      1,
	}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: s.popSize}

	slog.Info("search_started",
		"params", s.params.Dim(),
		"population", s.popSize,
		"max_evals", s.maxEvals,
		"seeds", len(s.eval.seeds),
		"max_sim_sec", s.eval.maxSimSec,
	)
	s.mu.Lock()
	s.start = time.Now()
	s.mu.Unlock()
	result, err := optimize.Minimize(problem, s.params.Normalize(init), settings, method)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bestX == nil {
		if result == nil {
			return nil, err
		}
		s.bestX = s.params.Clamp(s.params.Denormalize(result.X))
	}
	// running out of evaluations is the normal way a search ends
	if err != nil {
		slog.Info("search_stopped", "reason", err.Error())
	}
	return s.bestX, nil
}

// report writes the best trial: its parameter set and named profile, the
// window stats and bookmarks of its best seed run, and that run's final world.
func (s *search) report(out *telemetry.OutputManager, base *config.Params, best []float64, profile string) error {
	cfg := base.Copy()
	if err := s.params.Apply(cfg, best); err != nil {
		return err
	}
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}
	profilePath := filepath.Join(out.Dir(), "best_profile.yaml")
	if err := config.WriteProfile(profilePath, profile, s.params.Overrides(best)); err != nil {
		return err
	}

	windows, snap := s.eval.Best()
	bookmarks := telemetry.NewBookmarkDetector(10)
	for _, w := range windows {
		if err := out.WriteTelemetry(w); err != nil {
			return err
		}
		for _, b := range bookmarks.Check(w) {
			if err := out.WriteBookmark(b); err != nil {
				return err
			}
		}
	}
	var snapPath string
	if snap != nil {
		p, err := out.WriteSnapshot(snap)
		if err != nil {
			return err
		}
		snapPath = p
	}

	s.mu.Lock()
	fitness, trials := s.bestFitness, len(s.trials)
	s.mu.Unlock()
	slog.Info("search_finished",
		"trials", trials,
		"best_fitness", fitness,
		"profile", profilePath,
		"snapshot", snapPath,
	)
	for i, spec := range s.params.Specs {
		slog.Info("best_param", "name", spec.Name, "value", best[i])
	}
	return nil
}
