package render

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chrissnell/skywatch/pkg/skychart"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultKeep is how many chart files survive a cleanup
const DefaultKeep = 8

const chartPrefix = "sky_map_"

// FileStore writes rendered charts into a directory and prunes older ones.
// Files are written under a temporary name and renamed into place, so a
// failed render never leaves a partial chart behind.
type FileStore struct {
	dir    string
	keep   int
	png    *PNG
	logger *zap.SugaredLogger

	mu sync.Mutex
}

// NewFileStore creates the output directory if needed.
func NewFileStore(dir string, keep int, png *PNG, logger *zap.SugaredLogger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("chart output directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating chart directory %s: %w", dir, err)
	}
	if keep < 1 {
		keep = DefaultKeep
	}
	return &FileStore{dir: dir, keep: keep, png: png, logger: logger}, nil
}

// Dir returns the output directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Save renders chart and returns the file name (not the full path) it was stored under.
func (s *FileStore) Save(id string, chart skychart.Chart) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	// drawing happens outside the lock
	var buf bytes.Buffer
	if err := s.png.Encode(&buf, chart); err != nil {
		return "", err
	}

	name := chartPrefix + id + ".png"

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".chart-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp chart file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing chart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing chart: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("moving chart into place: %w", err)
	}

	s.prune(name)
	return name, nil
}

// Path resolves a file name previously returned by Save. Names that try to
// leave the directory or do not look like charts are rejected.
func (s *FileStore) Path(name string) (string, bool) {
	if name != filepath.Base(name) || !strings.HasPrefix(name, chartPrefix) || filepath.Ext(name) != ".png" {
		return "", false
	}
	p := filepath.Join(s.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// prune removes all but the newest s.keep charts. Called with s.mu held.
func (s *FileStore) prune(current string) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warnf("listing chart directory %s: %v", s.dir, err)
		return
	}

	type chartFile struct {
		name    string
		modTime int64
	}
	var charts []chartFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".png" || e.Name() == current {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		charts = append(charts, chartFile{e.Name(), info.ModTime().UnixNano()})
	}

	sort.Slice(charts, func(i, j int) bool { return charts[i].modTime > charts[j].modTime })

	// the chart just written counts toward keep
	for i := s.keep - 1; i < len(charts); i++ {
		if err := os.Remove(filepath.Join(s.dir, charts[i].name)); err != nil && !os.IsNotExist(err) {
			s.logger.Warnf("removing stale chart %s: %v", charts[i].name, err)
		}
	}
}
