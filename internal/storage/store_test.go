package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		RunID: "run-a",
		Samples: []dynamo.Sample{
			{T: 0, Ref: dynamo.Reference{1}, X: dynamo.State{1.0, 0.0}, U: dynamo.Control{0.5}},
			{T: 0.01, Ref: dynamo.Reference{1}, X: dynamo.State{0.9, -0.1}, U: dynamo.Control{0.25}},
		},
		Final:      dynamo.State{0.8, -0.2},
		StepsTaken: 2,
		Metrics:    map[string]float64{"control_effort": 1.5},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Plant:       "satellite",
		Seed:        42,
		Ts:          0.01,
		Duration:    0.02,
		Scheme:      "rk4",
		Controller:  "none",
		StateLabels: []string{"theta", "phi"},
		InputLabels: []string{"tau"},
	}
	runID, err := st.Save(meta, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID != "run-a" {
		t.Errorf("expected run id from result, got %q", runID)
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Plant != "satellite" || loaded.Seed != 42 || loaded.Steps != 2 {
		t.Errorf("unexpected metadata %+v", loaded)
	}
	if loaded.Metrics["control_effort"] != 1.5 {
		t.Errorf("expected control_effort 1.5, got %f", loaded.Metrics["control_effort"])
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("expected 2 rows, got %d states and %d times", len(states), len(times))
	}
	if states[1][0] != 0.9 || states[1][1] != -0.1 || times[1] != 0.01 {
		t.Errorf("unexpected row %v at %f", states[1], times[1])
	}
}

func TestStoreGeneratesID(t *testing.T) {
	st := New(t.TempDir())
	result := sampleResult()
	result.RunID = ""

	runID, err := st.Save(RunMetadata{Plant: "vtol"}, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected a generated run id")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first := sampleResult()
	second := sampleResult()
	second.RunID = "run-b"
	now := time.Now()
	if _, err := st.Save(RunMetadata{Plant: "vtol", Timestamp: now}, second); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := st.Save(RunMetadata{Plant: "satellite", Timestamp: now.Add(-time.Minute)}, first); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Errorf("runs not ordered by time: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runID, err := st.Save(RunMetadata{Plant: "satellite"}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{metadataFile, trajectoryFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult(), []string{"theta"}, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "time,ref,theta,x1,u0" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != "0.010000,1.000000,0.900000,-0.100000,0.250000" {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func TestWriteFileReportsCloseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")

	err := WriteFile(path, func(w io.Writer) error {
		return w.(*os.File).Close()
	})
	if !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected the close error, got %v", err)
	}
}

func TestWriteFileKeepsWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")
	boom := errors.New("boom")

	err := WriteFile(path, func(w io.Writer) error {
		w.(*os.File).Close()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected the write error, got %v", err)
	}
}
