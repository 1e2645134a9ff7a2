package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseSpatialHash)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseSenseInfer)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	for _, phase := range []string{PhaseSpatialHash, PhaseSenseInfer} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %s not tracked", phase)
		}
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseCollision)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasesAccumulateAcrossSubsteps(t *testing.T) {
	pc := NewPerfCollector(4)

	pc.StartTick()
	for i := 0; i < 3; i++ {
		pc.StartPhase(PhaseInteraction)
		time.Sleep(200 * time.Microsecond)
		pc.EndPhase()
	}
	pc.EndTick()

	stats := pc.Stats()
	if got := stats.PhaseAvg[PhaseInteraction]; got < 600*time.Microsecond {
		t.Errorf("interaction: got %v, want >= 600us", got)
	}
	if got := stats.PhasePct[PhaseInteraction]; got <= 0 || got > 100 {
		t.Errorf("interaction pct: got %v, want in (0, 100]", got)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(PhaseFood)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseSenseInfer)
		time.Sleep(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseSenseInfer] <= stats.PhasePct[PhaseFood] {
		t.Errorf("expected sense_infer_act (%v%%) > food (%v%%)",
			stats.PhasePct[PhaseSenseInfer], stats.PhasePct[PhaseFood])
	}

	row := stats.ToCSV(12.5)
	if row.SimTime != 12.5 || row.SenseInferPct != stats.PhasePct[PhaseSenseInfer] {
		t.Errorf("csv row: got %+v", row)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()
	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("expected FPS in (0, 70] with a 16ms frame, got %v", stats.FPS)
	}
}

func TestSampleMemory(t *testing.T) {
	m := SampleMemory(10, 10)
	if m.Estimated || m.Bytes == 0 {
		t.Errorf("runtime metric: got %+v, want a measured value", m)
	}

	est := sampleMemory("/no/such/metric:bytes", 10, 4)
	want := uint64(10*agentBytesEstimate + 4*foodBytesEstimate)
	if !est.Estimated || est.Bytes != want {
		t.Errorf("fallback: got %+v, want estimated %d", est, want)
	}
}
