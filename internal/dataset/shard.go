package dataset

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sample is one time-series window read from a shard: rows are time steps,
// columns are features, NaN marks a missing observation.
type Sample struct {
	Key    string
	Window [][]float64
}

const defaultStreamDepth = 64

// StreamShard streams the sample windows stored in the TAR shard at path.
// Each `<key>.csv` entry holds one window; the literal "nan" (any case) is a
// missing value. Entries with other extensions are skipped.
func StreamShard(ctx context.Context, path string) (<-chan Sample, <-chan error) {
	out := make(chan Sample, defaultStreamDepth)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		f, err := os.Open(path)
		if err != nil {
			errCh <- fmt.Errorf("open shard: %w", err)
			return
		}
		defer f.Close()

		tr := tar.NewReader(bufio.NewReader(f))
		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errCh <- fmt.Errorf("read tar: %w", err)
				return
			}
			if hdr.FileInfo().IsDir() {
				continue
			}
			name := filepath.Base(hdr.Name)
			ext := strings.ToLower(filepath.Ext(name))
			if ext != ".csv" {
				continue
			}
			payload, err := io.ReadAll(tr)
			if err != nil {
				errCh <- fmt.Errorf("read window %s: %w", name, err)
				return
			}
			window, err := parseWindow(payload)
			if err != nil {
				errCh <- fmt.Errorf("parse window %s: %w", name, err)
				return
			}
			sample := Sample{Key: strings.TrimSuffix(name, ext), Window: window}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- sample:
			}
		}
	}()

	return out, errCh
}

func parseWindow(payload []byte) ([][]float64, error) {
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	window := make([][]float64, 0, len(lines))
	width := -1
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if width == -1 {
			width = len(cols)
		} else if len(cols) != width {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(cols), width)
		}
		row := make([]float64, len(cols))
		for j, col := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(col), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i, j, err)
			}
			row[j] = v
		}
		window = append(window, row)
	}
	if len(window) == 0 {
		return nil, errors.New("empty window")
	}
	return window, nil
}

// ShardLoader streams batches from sorted on-disk shards, one full pass per
// Reset. Samples are fetched blocking; only the shard reader runs ahead.
type ShardLoader struct {
	shards    []string
	steps     int
	features  int
	batchSize int

	cancel  context.CancelFunc
	samples <-chan Sample
	errCh   <-chan error
	shard   int
	done    bool
	seen    int
	lastLen int
}

// NewShardLoader discovers shards under root and prepares a loader that
// yields windows of the given shape.
func NewShardLoader(root string, steps, features, batchSize int) (*ShardLoader, error) {
	if steps <= 0 || features <= 0 {
		return nil, fmt.Errorf("dataset: invalid window shape %dx%d", steps, features)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be > 0 (got %d)", batchSize)
	}
	shards, err := DiscoverShards(root)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("dataset: no shards discovered under %s", root)
	}
	return &ShardLoader{shards: shards, steps: steps, features: features, batchSize: batchSize}, nil
}

// Reset abandons any in-flight pass and starts a fresh one from the first
// shard.
func (l *ShardLoader) Reset() error {
	l.stop()
	l.shard = 0
	l.done = false
	l.seen = 0
	l.openShard()
	return nil
}

func (l *ShardLoader) stop() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.samples = nil
	l.errCh = nil
}

func (l *ShardLoader) openShard() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.samples, l.errCh = StreamShard(ctx, l.shards[l.shard])
}

// Next assembles the next batch, advancing across shard boundaries. The final
// batch of a pass may be short; io.EOF follows once all shards are drained.
func (l *ShardLoader) Next() (Batch, error) {
	if l.done {
		return Batch{}, io.EOF
	}
	if l.samples == nil {
		if err := l.Reset(); err != nil {
			return Batch{}, err
		}
	}
	windows := make([][][]float64, 0, l.batchSize)
	for len(windows) < l.batchSize {
		sample, ok := <-l.samples
		if !ok {
			if err := <-l.errCh; err != nil && !errors.Is(err, context.Canceled) {
				l.stop()
				return Batch{}, err
			}
			if l.shard+1 < len(l.shards) {
				l.shard++
				l.openShard()
				continue
			}
			l.stop()
			l.done = true
			break
		}
		if err := l.checkShape(sample); err != nil {
			return Batch{}, err
		}
		windows = append(windows, sample.Window)
	}
	l.seen += len(windows)
	if l.done {
		l.lastLen = l.seen
	}
	if len(windows) == 0 {
		return Batch{}, io.EOF
	}
	return l.buildBatch(windows)
}

func (l *ShardLoader) checkShape(sample Sample) error {
	if len(sample.Window) != l.steps || len(sample.Window[0]) != l.features {
		return fmt.Errorf("dataset: sample %s shaped %dx%d, want %dx%d",
			sample.Key, len(sample.Window), len(sample.Window[0]), l.steps, l.features)
	}
	return nil
}

func (l *ShardLoader) buildBatch(windows [][][]float64) (Batch, error) {
	out, err := NewSeries(len(windows), l.steps, l.features)
	if err != nil {
		return Batch{}, err
	}
	for i, window := range windows {
		for t, row := range window {
			for f, v := range row {
				out.Set(i, t, f, v)
			}
		}
	}
	return Batch{Data: out}, nil
}

// Len reports the number of samples seen in the most recent completed pass,
// or zero before the first pass finishes.
func (l *ShardLoader) Len() int { return l.lastLen }

// Close releases the in-flight shard reader, if any.
func (l *ShardLoader) Close() error {
	l.stop()
	return nil
}
