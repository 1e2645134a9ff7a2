package telemetry

import (
	"log/slog"
	"runtime/metrics"
	"time"
)

// Phase names for one engine substep.
const (
	PhaseCommands     = "commands"
	PhaseFood         = "food"
	PhaseSpatialHash  = "spatial_hash"
	PhaseSenseInfer   = "sense_infer_act"
	PhaseInteraction  = "interaction"
	PhaseReproduction = "reproduction"
	PhaseDeath        = "death"
	PhaseCollision    = "collision"
	PhaseCommit       = "commit"
	PhaseFrame        = "frame"
)

// Phases lists the phase names in pipeline order.
var Phases = []string{
	PhaseCommands, PhaseFood, PhaseSpatialHash, PhaseSenseInfer,
	PhaseInteraction, PhaseReproduction, PhaseDeath, PhaseCollision,
	PhaseCommit, PhaseFrame,
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks section timings over a rolling window of ticks.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string

	// Frame timing (windowed mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration, len(Phases))
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
// A phase entered several times in one tick (once per substep) accumulates.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndPhase stops the running phase without starting another.
func (p *PerfCollector) EndPhase() {
	if p.lastPhase == "" {
		return
	}
	p.currentPhases[p.lastPhase] += time.Since(p.phaseStart)
	p.lastPhase = ""
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	p.samples[p.writeIndex] = PerfSample{
		TickDuration: now.Sub(p.tickStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records frame timing for windowed mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Average duration per phase and share of the average tick.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	FrameDuration time.Duration
	FPS           float64

	Memory MemorySample
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg:      make(map[string]time.Duration),
			PhasePct:      make(map[string]float64),
			FrameDuration: p.frameDuration,
			FPS:           fps,
		}
	}

	var totalTick, minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration
		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		maxTick = max(maxTick, s.TickDuration)
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)
	phaseAvg := make(map[string]time.Duration, len(phaseSum))
	phasePct := make(map[string]float64, len(phaseSum))
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
		FrameDuration:   p.frameDuration,
		FPS:             fps,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	if s.Memory.Bytes > 0 {
		attrs = append(attrs, "heap_mb", s.Memory.Bytes>>20, "heap_estimated", s.Memory.Estimated)
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	SimTime         float64 `csv:"sim_time"`
	AvgTickUS       int64   `csv:"avg_tick_us"`
	MinTickUS       int64   `csv:"min_tick_us"`
	MaxTickUS       int64   `csv:"max_tick_us"`
	TicksPerSec     float64 `csv:"ticks_per_sec"`
	FPS             float64 `csv:"fps"`
	HeapBytes       uint64  `csv:"heap_bytes"`
	HeapEstimated   bool    `csv:"heap_estimated"`
	CommandsPct     float64 `csv:"commands_pct"`
	FoodPct         float64 `csv:"food_pct"`
	SpatialHashPct  float64 `csv:"spatial_hash_pct"`
	SenseInferPct   float64 `csv:"sense_infer_act_pct"`
	InteractionPct  float64 `csv:"interaction_pct"`
	ReproductionPct float64 `csv:"reproduction_pct"`
	DeathPct        float64 `csv:"death_pct"`
	CollisionPct    float64 `csv:"collision_pct"`
	CommitPct       float64 `csv:"commit_pct"`
	FramePct        float64 `csv:"frame_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(simTime float64) PerfStatsCSV {
	return PerfStatsCSV{
		SimTime:         simTime,
		AvgTickUS:       s.AvgTickDuration.Microseconds(),
		MinTickUS:       s.MinTickDuration.Microseconds(),
		MaxTickUS:       s.MaxTickDuration.Microseconds(),
		TicksPerSec:     s.TicksPerSecond,
		FPS:             s.FPS,
		HeapBytes:       s.Memory.Bytes,
		HeapEstimated:   s.Memory.Estimated,
		CommandsPct:     s.PhasePct[PhaseCommands],
		FoodPct:         s.PhasePct[PhaseFood],
		SpatialHashPct:  s.PhasePct[PhaseSpatialHash],
		SenseInferPct:   s.PhasePct[PhaseSenseInfer],
		InteractionPct:  s.PhasePct[PhaseInteraction],
		ReproductionPct: s.PhasePct[PhaseReproduction],
		DeathPct:        s.PhasePct[PhaseDeath],
		CollisionPct:    s.PhasePct[PhaseCollision],
		CommitPct:       s.PhasePct[PhaseCommit],
		FramePct:        s.PhasePct[PhaseFrame],
	}
}

// MemorySample is the heap in use, read from the runtime when the metric is
// available and estimated from population size otherwise.
type MemorySample struct {
	Bytes     uint64
	Estimated bool
}

const heapMetric = "/memory/classes/heap/objects:bytes"

// Rough per-object footprints used by the estimate.
const (
	agentBytesEstimate = 4096
	foodBytesEstimate  = 128
)

// SampleMemory reads the live heap size. If the runtime does not export the
// metric it falls back to an estimate from the population.
func SampleMemory(agents, foods int) MemorySample {
	return sampleMemory(heapMetric, agents, foods)
}

func sampleMemory(name string, agents, foods int) MemorySample {
	s := []metrics.Sample{{Name: name}}
	metrics.Read(s)
	if s[0].Value.Kind() == metrics.KindUint64 {
		return MemorySample{Bytes: s[0].Value.Uint64()}
	}
	return MemorySample{
		Bytes:     uint64(agents)*agentBytesEstimate + uint64(foods)*foodBytesEstimate,
		Estimated: true,
	}
}
