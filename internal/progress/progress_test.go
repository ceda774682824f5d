package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"trafficgen/internal/collector"
	"trafficgen/internal/core"
	"trafficgen/internal/scheduler"
)

type fixedStats scheduler.Stats

func (f fixedStats) Stats() scheduler.Stats { return scheduler.Stats(f) }

func TestProgress_QuietMode(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	var buf bytes.Buffer
	p := NewProgress(c, fixedStats{}, 10, true)
	p.SetOutput(&buf)

	p.Start()
	p.Printf("starting %d users", 10)
	p.Stop()

	if buf.Len() != 0 {
		t.Errorf("expected no output in quiet mode, got %q", buf.String())
	}
}

func TestProgress_DoubleStop(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	w := &core.MockWriter{}
	p := NewProgress(c, fixedStats{}, 1, false)
	p.SetOutput(w)
	p.Start()
	p.Stop()
	p.Stop()

	if got := strings.Count(w.String(), "\033[K"); got != 1 {
		t.Errorf("expected a single line clear, got %d in %q", got, w.String())
	}
}

func TestProgress_StopWithoutStart(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	p := NewProgress(c, fixedStats{}, 1, false)
	p.SetOutput(&bytes.Buffer{})
	p.Stop()
}

func TestProgress_PrintProgress(t *testing.T) {
	c := collector.NewCollector()
	c.Emit(core.Event{Kind: core.KindLogin, Details: map[string]any{"status": "success", "elapsed_ms": 5.0}})
	c.Emit(core.Event{Kind: core.KindTopTransitionFail})
	c.Close()

	var buf bytes.Buffer
	p := NewProgress(c, fixedStats{Completed: 3, Active: 2}, 10, false)
	p.SetOutput(&buf)
	p.startTime = time.Now().Add(-65 * time.Second)

	p.printProgress()

	output := buf.String()
	for _, want := range []string{"[01:05]", "Users: 3/10 done, 2 active", "Calls: 1", "Rejected: 1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in %q", want, output)
		}
	}
}

func TestProgress_TickerReportsWhileRunning(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	w := &core.MockWriter{}
	p := NewProgress(c, fixedStats{Active: 2}, 5, false)
	p.SetOutput(w)
	p.Start()
	defer p.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(w.String(), "Users: 0/5 done, 2 active") {
		if time.Now().After(deadline) {
			t.Fatalf("no progress line written, got %q", w.String())
		}
		p.Printf("waiting")
		time.Sleep(50 * time.Millisecond)
	}
}

func TestProgress_Printf(t *testing.T) {
	c := collector.NewCollector()
	defer c.Close()

	var buf bytes.Buffer
	p := NewProgress(c, fixedStats{}, 1, false)
	p.SetOutput(&buf)

	p.Printf("Catalog: %d products", 42)

	if !strings.Contains(buf.String(), "\033[KCatalog: 42 products\n") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
