// Package storage persists finished runs as one directory per run holding a
// metadata.json and a trajectory CSV.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/san-kum/plantsim/internal/sim"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// RunMetadata describes a stored run well enough to reproduce it.
type RunMetadata struct {
	ID          string             `json:"id"`
	Plant       string             `json:"plant"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        uint64             `json:"seed"`
	Ts          float64            `json:"ts"`
	Duration    float64            `json:"duration"`
	Alpha       float64            `json:"alpha"`
	Scheme      string             `json:"scheme"`
	Controller  string             `json:"controller"`
	Feedback    string             `json:"feedback"`
	Params      map[string]float64 `json:"params"`
	StateLabels []string           `json:"state_labels"`
	InputLabels []string           `json:"input_labels"`
	Steps       int                `json:"steps"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes meta and the recorded trajectory under a new run directory.
// The run ID is taken from the result when it has one.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	if meta.ID == "" {
		meta.ID = result.RunID
	}
	if meta.ID == "" {
		meta.ID = xid.New().String()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Steps = result.StepsTaken
	if meta.Metrics == nil {
		meta.Metrics = result.Metrics
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	err := WriteFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return "", err
	}

	err = WriteFile(filepath.Join(runDir, trajectoryFile), func(w io.Writer) error {
		return WriteCSV(w, result, meta.StateLabels, meta.InputLabels)
	})
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

// WriteFile creates path and fills it with write. A failed close is reported
// unless write already failed, since buffered data may not have reached disk.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(file)
}

// WriteCSV writes one row per recorded step: time, reference, the state
// channels and the input channels. Missing labels fall back to x<i> and u<i>.
func WriteCSV(w io.Writer, result *sim.Result, stateLabels, inputLabels []string) error {
	cw := csv.NewWriter(w)

	nx, nu := 0, 0
	if len(result.Samples) > 0 {
		nx = len(result.Samples[0].X)
		nu = len(result.Samples[0].U)
	}

	header := []string{"time", "ref"}
	header = append(header, columnNames("x", stateLabels, nx)...)
	header = append(header, columnNames("u", inputLabels, nu)...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range result.Samples {
		row := make([]string, 0, len(header))
		ref := 0.0
		if len(s.Ref) > 0 {
			ref = s.Ref[0]
		}
		row = append(row, formatFloat(s.T), formatFloat(ref))
		for i := 0; i < nx; i++ {
			row = append(row, formatFloat(at(s.X, i)))
		}
		for i := 0; i < nu; i++ {
			row = append(row, formatFloat(at(s.U, i)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func columnNames(prefix string, labels []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(labels) && labels[i] != "" {
			out[i] = labels[i]
		} else {
			out[i] = fmt.Sprintf("%s%d", prefix, i)
		}
	}
	return out
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// List returns the metadata of every stored run, oldest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStates reads back the state columns and times of a stored run.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	nx := len(meta.StateLabels)
	if nx == 0 {
		nx = len(records[0]) - 2
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 2+nx {
			return nil, nil, fmt.Errorf("run %s row %d: %d columns, want at least %d", runID, i+1, len(record), 2+nx)
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
		}
		state := make([]float64, nx)
		for j := range state {
			if state[j], err = strconv.ParseFloat(record[2+j], 64); err != nil {
				return nil, nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
			}
		}
		times = append(times, t)
		states = append(states, state)
	}

	return states, times, nil
}
