package runstore

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stanford-futuredata/smol/internal/domain"
	"github.com/stanford-futuredata/smol/internal/ports"
	"github.com/stanford-futuredata/smol/internal/usecase/trial"
)

const (
	DataFile  = "data.csv"
	RunFile   = "run.json"
	IndexFile = "index.jsonl"
)

// Store writes experiment artifacts into each experiment's output directory.
type Store struct {
	indexDir string
	now      func() time.Time

	mu sync.Mutex
}

type Option func(*Store)

// WithIndex appends one JSON line per saved experiment to dir/index.jsonl.
func WithIndex(dir string) Option {
	return func(s *Store) { s.indexDir = dir }
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.ArtifactStore = (*Store)(nil)

func (s *Store) SaveExperiment(res domain.ExperimentResult) error {
	if strings.TrimSpace(res.OutDir) == "" {
		return domain.InvalidConfig("runstore.save", "", "experiment has no output directory")
	}
	if err := os.MkdirAll(res.OutDir, 0o755); err != nil {
		return &domain.OpError{
			Op:   "runstore.mkdir",
			Kind: domain.KindExecution,
			Path: res.OutDir,
			Err:  err,
		}
	}

	var csvBuf bytes.Buffer
	if err := trial.WriteCSV(&csvBuf, res.Accuracy, res.Times); err != nil {
		return &domain.OpError{
			Op:   "runstore.csv",
			Kind: domain.KindExecution,
			Path: filepath.Join(res.OutDir, DataFile),
			Err:  err,
		}
	}
	if err := writeAtomic(filepath.Join(res.OutDir, DataFile), csvBuf.Bytes()); err != nil {
		return err
	}

	if res.EndedAt.IsZero() {
		res.EndedAt = s.now()
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return &domain.OpError{
			Op:   "runstore.marshal",
			Kind: domain.KindExecution,
			Path: filepath.Join(res.OutDir, RunFile),
			Err:  err,
		}
	}
	if err := writeAtomic(filepath.Join(res.OutDir, RunFile), append(b, '\n')); err != nil {
		return err
	}

	if s.indexDir != "" {
		return s.appendIndex(res)
	}
	return nil
}

// IndexEntry is one line of index.jsonl.
type IndexEntry struct {
	ID         string    `json:"id"`
	ConfigPath string    `json:"config_path"`
	OutDir     string    `json:"out_dir"`
	Mode       string    `json:"mode"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	Measured   int       `json:"measured"`
	Failed     int       `json:"failed"`
	MeanSecs   float64   `json:"mean_seconds"`
	StartedAt  time.Time `json:"started_at"`
}

func (s *Store) appendIndex(res domain.ExperimentResult) error {
	line, err := json.Marshal(IndexEntry{
		ID:         res.ID,
		ConfigPath: res.ConfigPath,
		OutDir:     res.OutDir,
		Mode:       string(res.Mode),
		Accuracy:   res.Accuracy,
		Measured:   len(res.Times),
		Failed:     res.FailedTrials(),
		MeanSecs:   trial.Summarize(res.Times).Mean,
		StartedAt:  res.StartedAt,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.indexDir, 0o755); err != nil {
		return &domain.OpError{
			Op:   "runstore.index",
			Kind: domain.KindExecution,
			Path: s.indexDir,
			Err:  err,
		}
	}

	indexPath := filepath.Join(s.indexDir, IndexFile)
	f, err := os.OpenFile(indexPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &domain.OpError{
			Op:   "runstore.index",
			Kind: domain.KindExecution,
			Path: indexPath,
			Err:  err,
		}
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

// ReadIndex returns every entry of dir/index.jsonl; a missing file is empty.
func ReadIndex(dir string) ([]IndexEntry, error) {
	path := filepath.Join(dir, IndexFile)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.OpError{
			Op:   "runstore.read_index",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	var out []IndexEntry
	dec := json.NewDecoder(bytes.NewReader(b))
	for dec.More() {
		var e IndexEntry
		if err := dec.Decode(&e); err != nil {
			return out, domain.InvalidConfig("runstore.read_index", path, "%s", err.Error())
		}
		out = append(out, e)
	}
	return out, nil
}

// writeAtomic writes to a temp file and renames it over path.
func writeAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return &domain.OpError{
			Op:   "runstore.write",
			Kind: domain.KindExecution,
			Path: tmp,
			Err:  err,
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return &domain.OpError{
			Op:   "runstore.rename",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}
	return nil
}

const (
	ThroughputCSV  = "throughput.csv"
	ThroughputJSON = "throughput.json"
)

var _ ports.ThroughputStore = (*Store)(nil)

// SaveThroughput writes throughput.csv (one row per batch size) and
// throughput.json into dir.
func (s *Store) SaveThroughput(dir string, res domain.ThroughputResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.OpError{
			Op:   "runstore.mkdir",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"batch_size", "seconds", "images_per_sec"})
	for _, smp := range res.Samples {
		_ = cw.Write([]string{
			strconv.Itoa(smp.BatchSize),
			trial.FormatFloat(smp.Seconds),
			trial.FormatFloat(smp.ImagesPerSec),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return &domain.OpError{
			Op:   "runstore.csv",
			Kind: domain.KindExecution,
			Path: filepath.Join(dir, ThroughputCSV),
			Err:  err,
		}
	}
	if err := writeAtomic(filepath.Join(dir, ThroughputCSV), buf.Bytes()); err != nil {
		return err
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return &domain.OpError{
			Op:   "runstore.marshal",
			Kind: domain.KindExecution,
			Path: filepath.Join(dir, ThroughputJSON),
			Err:  err,
		}
	}
	return writeAtomic(filepath.Join(dir, ThroughputJSON), append(b, '\n'))
}
