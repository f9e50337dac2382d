// Package export renders finished runs for use outside the simulator: a JSON
// document for scripts and line plots for people.
package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/plantsim/internal/sim"
	"github.com/san-kum/plantsim/internal/storage"
)

type ExportData struct {
	RunID        string             `json:"run_id"`
	Plant        string             `json:"plant"`
	Scheme       string             `json:"scheme"`
	Controller   string             `json:"controller"`
	Seed         uint64             `json:"seed"`
	Ts           float64            `json:"ts"`
	Duration     float64            `json:"duration"`
	Params       map[string]float64 `json:"params,omitempty"`
	StateLabels  []string           `json:"state_labels,omitempty"`
	InputLabels  []string           `json:"input_labels,omitempty"`
	Steps        int                `json:"steps"`
	Times        []float64          `json:"times"`
	References   []float64          `json:"references"`
	States       [][]float64        `json:"states"`
	Controls     [][]float64        `json:"controls"`
	Measurements [][]float64        `json:"measurements"`
	Final        []float64          `json:"final"`
	Metrics      map[string]float64 `json:"metrics"`
}

func NewExportData(meta storage.RunMetadata, result *sim.Result) ExportData {
	data := ExportData{
		RunID:        result.RunID,
		Plant:        meta.Plant,
		Scheme:       meta.Scheme,
		Controller:   meta.Controller,
		Seed:         meta.Seed,
		Ts:           meta.Ts,
		Duration:     meta.Duration,
		Params:       meta.Params,
		StateLabels:  meta.StateLabels,
		InputLabels:  meta.InputLabels,
		Steps:        result.StepsTaken,
		Times:        result.Times(),
		References:   result.ReferenceSeries(),
		States:       make([][]float64, len(result.Samples)),
		Controls:     make([][]float64, len(result.Samples)),
		Measurements: make([][]float64, len(result.Measurements)),
		Final:        result.Final,
		Metrics:      result.Metrics,
	}

	for i, s := range result.Samples {
		data.States[i] = s.X
		data.Controls[i] = s.U
	}
	for i, y := range result.Measurements {
		data.Measurements[i] = y
	}
	return data
}

func WriteJSON(w io.Writer, meta storage.RunMetadata, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(meta, result))
}

func ExportJSON(path string, meta storage.RunMetadata, result *sim.Result) error {
	return storage.WriteFile(path, func(w io.Writer) error {
		return WriteJSON(w, meta, result)
	})
}
