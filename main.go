package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/petri/config"
	"github.com/pthm-cable/petri/engine"
	"github.com/pthm-cable/petri/renderer"
	"github.com/pthm-cable/petri/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	profile := flag.String("profile", "", "Named profile applied over the config ("+fmt.Sprint(config.Profiles())+")")
	profileFile := flag.String("profile-file", "", "Profiles YAML (e.g. from cmd/optimize) to read -profile from")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config and bookmark snapshots")
	storePath := flag.String("store", "", "SQLite snapshot store path (empty = in-memory)")
	restore := flag.String("restore", "", "Snapshot JSON file to restore on start")
	restoreID := flag.String("restore-id", "", "Snapshot ID in the store to restore on start")
	listSnapshots := flag.Bool("list-snapshots", false, "List stored snapshots and exit")
	prototype := flag.String("prototype", "", "Agent record CSV used by SpawnPrototype")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	width := flag.Int("width", 1280, "Window width")
	height := flag.Int("height", 800, "Window height")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	params := config.Cfg()
	switch {
	case *profileFile != "":
		if err := params.ApplyProfileFile(*profileFile, *profile); err != nil {
			slog.Error("failed to apply profile", "file", *profileFile, "profile", *profile, "error", err)
			os.Exit(1)
		}
	case *profile != "":
		if err := params.ApplyProfile(*profile); err != nil {
			slog.Error("failed to apply profile", "profile", *profile, "error", err)
			os.Exit(1)
		}
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	store, err := openStore(ctx, *storePath)
	if err != nil {
		slog.Error("failed to open snapshot store", "path", *storePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if *listSnapshots {
		infos, err := store.List(ctx)
		if err != nil {
			slog.Error("failed to list snapshots", "error", err)
			os.Exit(1)
		}
		for _, info := range infos {
			fmt.Printf("%s  %s  t=%.1fs  agents=%d\n", info.ID, info.Timestamp.Format(time.RFC3339), info.SimTime, info.Agents)
		}
		return
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output", "dir", *outputDir, "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(params); err != nil {
		slog.Warn("config_write_failed", "error", err)
	}

	r := &recorder{
		ctx:       ctx,
		out:       out,
		store:     store,
		bookmarks: telemetry.NewBookmarkDetector(10),
		logStats:  *logStats,
	}
	e := engine.New(params, engine.Options{
		Seed:      rngSeed,
		ViewportW: float32(*width),
		ViewportH: float32(*height),
		OnWindow:  r.window,
	})
	r.engine = e

	if *prototype != "" {
		rec, err := telemetry.LoadAgentFile(*prototype)
		if err != nil {
			slog.Error("failed to load prototype", "path", *prototype, "error", err)
			os.Exit(1)
		}
		e.LoadPrototype(rec)
	}

	e.Start()
	defer e.Stop()

	if err := restoreSnapshot(ctx, e, store, *restore, *restoreID); err != nil {
		slog.Error("failed to restore snapshot", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"headless", *headless,
		"max_ticks", *maxTicks,
		"profile", *profile,
	)

	if *headless {
		runHeadless(ctx, e, *maxTicks)
		return
	}

	// The engine steps on its own goroutine; raylib owns the main thread.
	go func() {
		if err := e.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("engine stopped", "error", err)
		}
	}()
	if *maxTicks > 0 {
		slog.Warn("max-ticks is ignored in windowed mode")
	}
	v := renderer.NewViewer(e, renderer.Options{
		Width:  int32(*width),
		Height: int32(*height),
		Title:  "petri",
		FPS:    int32(params.Int("fps", 60)),
	})
	if err := v.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("viewer stopped", "error", err)
	}
	cancel()
}

// runHeadless steps at the base rate as fast as possible.
func runHeadless(ctx context.Context, e *engine.Engine, maxTicks int) {
	for tick := 1; ctx.Err() == nil; tick++ {
		e.Step(engine.BaseDT)
		if maxTicks > 0 && tick >= maxTicks {
			slog.Info("max ticks reached", "tick", tick, "sim_time", e.SimTime())
			return
		}
	}
}

func openStore(ctx context.Context, path string) (telemetry.Store, error) {
	var s telemetry.Store = telemetry.NewMemoryStore()
	if path != "" {
		s = telemetry.NewSQLiteStore(path)
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func restoreSnapshot(ctx context.Context, e *engine.Engine, store telemetry.Store, path, id string) error {
	var (
		snap *telemetry.WorldSnapshot
		err  error
	)
	switch {
	case path != "":
		snap, err = telemetry.LoadSnapshot(path)
	case id != "":
		snap, err = store.Load(ctx, id)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return e.Restore(snap)
}

// recorder receives completed stats windows on the stepping goroutine and
// writes telemetry, perf rows and bookmark snapshots.
type recorder struct {
	ctx       context.Context
	engine    *engine.Engine
	out       *telemetry.OutputManager
	store     telemetry.Store
	bookmarks *telemetry.BookmarkDetector
	logStats  bool
}

func (r *recorder) window(stats telemetry.WindowStats) {
	if r.logStats {
		stats.LogStats()
	}
	if err := r.out.WriteTelemetry(stats); err != nil {
		slog.Warn("telemetry_write_failed", "error", err)
	}

	perf := r.engine.PerfStats()
	if r.logStats {
		perf.LogStats()
	}
	if err := r.out.WritePerf(perf, stats.WindowEnd); err != nil {
		slog.Warn("perf_write_failed", "error", err)
	}

	for _, b := range r.bookmarks.Check(stats) {
		b.LogBookmark()
		if err := r.out.WriteBookmark(b); err != nil {
			slog.Warn("bookmark_write_failed", "error", err)
		}
		r.saveSnapshot(b)
	}
}

func (r *recorder) saveSnapshot(b telemetry.Bookmark) {
	snap := r.engine.Snapshot()
	snap.Bookmark = &b
	id, err := r.store.Save(r.ctx, snap)
	if err != nil {
		slog.Warn("snapshot_store_failed", "error", err)
	}
	path, err := r.out.WriteSnapshot(snap)
	if err != nil {
		slog.Warn("snapshot_write_failed", "error", err)
	}
	slog.Info("snapshot_saved", "id", id, "path", path, "bookmark", string(b.Type))
}
