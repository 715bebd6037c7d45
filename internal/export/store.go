// Package export stores solved runs on disk and assembles diagram-ready
// data from the components.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/skanders/thermoflow/internal/netw"
)

// Store keeps one directory per solved run under a base directory.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init ensures the base directory exists.
func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

// RunMetadata describes one stored run.
type RunMetadata struct {
	ID         string    `json:"id"`
	Case       string    `json:"case"`
	Mode       string    `json:"mode"`
	Timestamp  time.Time `json:"timestamp"`
	Iterations int       `json:"iterations"`
	Residual   float64   `json:"residual"`
	Converged  bool      `json:"converged"`
	ElapsedSec float64   `json:"elapsed_sec"`
	Backend    string    `json:"backend"`
}

// Save stores the solved network with its convergence history and returns
// the run id.
func (s *Store) Save(caseName string, nw *netw.Network, rep *netw.Report) (string, error) {
	runID := fmt.Sprintf("%s_%d", caseName, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating run directory")
	}

	residual := 0.0
	if n := len(rep.Residuals); n > 0 {
		residual = rep.Residuals[n-1]
	}
	meta := RunMetadata{
		ID:         runID,
		Case:       caseName,
		Mode:       rep.Mode,
		Timestamp:  time.Now(),
		Iterations: rep.Iterations,
		Residual:   residual,
		Converged:  rep.Converged,
		ElapsedSec: rep.Elapsed.Seconds(),
		Backend:    rep.Backend,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	if err := nw.Save(runDir); err != nil {
		return "", err
	}

	if err := writeConvergence(filepath.Join(runDir, "convergence.csv"), rep.Residuals); err != nil {
		return "", err
	}
	if err := writeComponents(filepath.Join(runDir, "components.csv"), nw); err != nil {
		return "", err
	}
	return runID, nil
}

func writeConvergence(path string, residuals []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating convergence table")
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"iteration", "residual"}); err != nil {
		return errors.Wrap(err, "writing convergence table")
	}
	for i, r := range residuals {
		rec := []string{strconv.Itoa(i + 1), strconv.FormatFloat(r, 'e', 6, 64)}
		if err := w.Write(rec); err != nil {
			return errors.Wrap(err, "writing convergence table")
		}
	}
	return nil
}

// writeComponents tabulates the calculated parameters of every component
// that reports any.
func writeComponents(path string, nw *netw.Network) error {
	type reporter interface {
		ResultParameters() map[string]float64
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating component table")
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"component", "type", "parameter", "value"}); err != nil {
		return errors.Wrap(err, "writing component table")
	}
	for _, comp := range nw.Comps() {
		rep, ok := comp.(reporter)
		if !ok {
			continue
		}
		params := rep.ResultParameters()
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rec := []string{
				comp.Label(), comp.TypeName(), name,
				strconv.FormatFloat(params[name], 'g', -1, 64),
			}
			if err := w.Write(rec); err != nil {
				return errors.Wrap(err, "writing component table")
			}
		}
	}
	return nil
}

// List returns the metadata of all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading store directory")
	}
	var metas []RunMetadata
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Meta(e.Name())
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Timestamp.After(metas[j].Timestamp) })
	return metas, nil
}

// Meta loads the metadata of one run.
func (s *Store) Meta(runID string) (RunMetadata, error) {
	var meta RunMetadata
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return meta, errors.Wrapf(err, "loading run %s", runID)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, errors.Wrapf(err, "parsing metadata of run %s", runID)
	}
	return meta, nil
}

// Convergence loads the residual history of a run.
func (s *Store) Convergence(runID string) ([]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "convergence.csv"))
	if err != nil {
		return nil, errors.Wrapf(err, "loading convergence of run %s", runID)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing convergence of run %s", runID)
	}
	var residuals []float64
	for _, rec := range recs[1:] {
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing convergence of run %s", runID)
		}
		residuals = append(residuals, v)
	}
	return residuals, nil
}

// Table loads one of the stored CSV tables of a run, header included.
func (s *Store) Table(runID, name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s of run %s", name, runID)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s of run %s", name, runID)
	}
	return recs, nil
}

// Dir returns the directory of a stored run, e.g. to reuse it as a design
// point.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating json file")
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding json")
}
