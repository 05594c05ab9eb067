package storage

import (
	"encoding/json"
	"io"
)

// ExportData is the JSON export of one run.
type ExportData struct {
	RunMetadata
	Times   []float64   `json:"times"`
	Samples [][]float64 `json:"samples"`
}

// ExportJSON writes metadata and samples of a run as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	res, err := s.LoadResult(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Times:       res.Times(),
		Samples:     make([][]float64, res.Len()),
	}
	for i := range data.Samples {
		_, data.Samples[i] = res.Sample(i)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes the samples of a run as CSV.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	res, err := s.LoadResult(runID)
	if err != nil {
		return err
	}
	return WriteCSV(w, res)
}
