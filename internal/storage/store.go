package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/san-kum/episim/internal/results"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

// ErrUnknownRun is returned for a run ID without an archive entry.
var ErrUnknownRun = errors.New("storage: unknown run")

// Store archives runs below a base directory, one directory per run.
type Store struct {
	fs      vfs.FileSystem
	baseDir string
}

// New creates a store on the OS filesystem unless another one is given.
func New(baseDir string, fss ...vfs.FileSystem) *Store {
	fs := vfs.FileSystem(osfs.OsFs)
	if len(fss) > 0 && fss[0] != nil {
		fs = fss[0]
	}
	return &Store{fs: fs, baseDir: baseDir}
}

func (s *Store) Init() error {
	err := s.fs.MkdirAll(s.baseDir, 0o755)
	if err != nil && !errors.Is(err, vfs.ErrExist) {
		return err
	}
	return nil
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Timestamp time.Time          `json:"timestamp"`
	Method    string             `json:"method"`
	Dt        float64            `json:"dt"`
	Horizon   float64            `json:"horizon"`
	Tolerance float64            `json:"tolerance,omitempty"`
	Status    string             `json:"status"`
	Steps     int                `json:"steps"`
	Rejected  int                `json:"rejected,omitempty"`
	FinalTime float64            `json:"final_time"`
	Error     string             `json:"error,omitempty"`
	Labels    []string           `json:"labels"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

func (s *Store) dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// NewRunID derives a sortable, unique run ID for a model.
func NewRunID(model string, at time.Time) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == ' ' || r == filepath.Separator {
			return '-'
		}
		return r
	}, model)
	return fmt.Sprintf("%s_%s_%s", name, at.UTC().Format("20060102T150405"), uuid.NewString()[:8])
}

// Save writes metadata and samples and returns the run ID, assigning one
// when meta.ID is empty.
func (s *Store) Save(meta RunMetadata, res *results.Result) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Model, meta.Timestamp)
	}
	meta.Labels = res.Labels()

	runDir := s.dir(meta.ID)
	if err := s.fs.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := vfs.WriteFile(s.fs, filepath.Join(runDir, metadataFile), data, 0o644); err != nil {
		return "", err
	}

	f, err := s.fs.Create(filepath.Join(runDir, samplesFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteCSV(f, res); err != nil {
		return "", err
	}
	log.Debug("saved run {{run}} with {{samples}} samples", "run", meta.ID, "samples", res.Len())
	return meta.ID, nil
}

// WriteCSV writes a header of t and the labels followed by one row per
// sample.
func WriteCSV(out io.Writer, res *results.Result) error {
	w := csv.NewWriter(out)
	header := append([]string{"t"}, res.Labels()...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < res.Len(); i++ {
		t, values := res.Sample(i)
		row := make([]string, 0, len(values)+1)
		row = append(row, strconv.FormatFloat(t, 'g', -1, 64))
		for _, v := range values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the archived runs, oldest first. Unreadable entries are
// skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := vfs.ReadDir(s.fs, s.baseDir)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
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
			log.Debug("skipping {{entry}}: {{error}}", "entry", entry.Name(), "error", err)
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := vfs.ReadFile(s.fs, filepath.Join(s.dir(runID), metadataFile))
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadResult reads the samples of a run back into a result.
func (s *Store) LoadResult(runID string) (*results.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(filepath.Join(s.dir(runID), samplesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	res := results.New(meta.Model, meta.Labels)
	for i, record := range records {
		if i == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("run %s line %d: %w", runID, i+1, err)
		}
		values := make([]float64, len(record)-1)
		for j := range values {
			if values[j], err = strconv.ParseFloat(record[j+1], 64); err != nil {
				return nil, fmt.Errorf("run %s line %d: %w", runID, i+1, err)
			}
		}
		if err := res.AppendSample(t, values); err != nil {
			return nil, fmt.Errorf("run %s line %d: %w", runID, i+1, err)
		}
	}
	return res, nil
}

// Delete removes a run from the archive.
func (s *Store) Delete(runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	return s.fs.RemoveAll(s.dir(runID))
}
