// Package extract writes recovered archive entries to disk. Entries are
// independent of one another, so a bounded pool of workers reads and
// inflates them concurrently; a failure is confined to its own entry and
// never aborts the run.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"

	"github.com/frozentools/pyextract/pkg/carchive"
	"github.com/frozentools/pyextract/pkg/sysinfo"
)

// Result records the outcome of one entry's extraction.
type Result struct {
	Entry carchive.Entry
	Path  string // relative path written, empty when skipped
	Size  int64  // bytes written
	Err   error  // nil on success
}

// Summary aggregates the per-entry results of one extraction run.
type Summary struct {
	Results   []Result // one per attempted entry, in archive order
	Recovered int
	Skipped   int
}

// Progress receives each entry's result as it completes, together with the
// running completion count. Invocations are serialized, so the callback may
// print without its own locking.
type Progress func(res Result, done, total int)

// config holds extraction options.
type config struct {
	workers  int
	only     map[string]struct{}
	progress Progress
}

// Option configures an extraction run.
type Option func(*config)

// WithWorkers sets the worker pool size. Values below 1 select one worker
// per physical core; values above the core count are clamped down.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithOnly restricts the run to entries with the given names.
func WithOnly(names []string) Option {
	return func(c *config) {
		if len(names) == 0 {
			return
		}
		c.only = make(map[string]struct{}, len(names))
		for _, n := range names {
			c.only[n] = struct{}{}
		}
	}
}

// WithProgress registers a callback invoked as each entry completes.
func WithProgress(fn Progress) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// Extract writes the given entries under outputDir, decompressing payloads
// as flagged. Running the same extraction twice into the same directory
// produces the same tree; when entries share a name the last writer wins,
// mirroring how the bundle itself would unpack.
func Extract(src carchive.ByteSource, entries []carchive.Entry, outputDir string, opts ...Option) (*Summary, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	work := entries
	if len(cfg.only) > 0 {
		work = make([]carchive.Entry, 0, len(cfg.only))
		for _, e := range entries {
			if _, ok := cfg.only[e.Name]; ok {
				work = append(work, e)
			}
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	results := make([]Result, len(work))
	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	g.SetLimit(resolveWorkers(cfg.workers))

	for i := range work {
		i := i // per-iteration copy; required while go.mod targets pre-1.22
		g.Go(func() error {
			res := extractOne(src, work[i], outputDir)
			results[i] = res

			mu.Lock()
			done++
			if cfg.progress != nil {
				cfg.progress(res, done, len(work))
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers never fail the group; per-entry errors live in the results.
	_ = g.Wait()

	sum := &Summary{Results: results}
	for _, res := range results {
		if res.Err != nil {
			sum.Skipped++
		} else {
			sum.Recovered++
		}
	}
	return sum, nil
}

// resolveWorkers picks the pool size. Oversized requests are clamped to the
// physical core count since extraction is CPU-bound and extra workers only
// contend for the same cores.
func resolveWorkers(requested int) int {
	phys := sysinfo.PhysicalCores()
	if requested < 1 {
		return phys
	}
	if requested > phys {
		fmt.Printf("[!] Requested %d workers exceeds %d physical cores, using %d\n",
			requested, phys, phys)
		return phys
	}
	return requested
}

// extractOne reads, inflates and writes a single entry.
func extractOne(src carchive.ByteSource, e carchive.Entry, outputDir string) Result {
	res := Result{Entry: e}

	if e.Position < 0 {
		res.Err = fmt.Errorf("payload position %d out of range", e.Position)
		return res
	}

	data := make([]byte, e.CompressedSize)
	if _, err := src.ReadAt(data, e.Position); err != nil {
		res.Err = fmt.Errorf("read payload: %w", err)
		return res
	}

	if e.Compressed {
		inflated, err := inflate(data, e.UncompressedSize)
		if err != nil {
			res.Err = fmt.Errorf("inflate: %w", err)
			return res
		}
		data = inflated
	}

	rel := filepath.FromSlash(e.Name)
	path := filepath.Join(outputDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		res.Err = fmt.Errorf("create directory: %w", err)
		return res
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		res.Err = fmt.Errorf("write file: %w", err)
		return res
	}

	res.Path = rel
	res.Size = int64(len(data))
	return res
}

// inflate decompresses a zlib stream that must yield exactly want bytes.
// Short output, excess output, or a stream that does not end cleanly at
// that size are all rejected: a stream disagreeing with the declared size
// means the directory record and the payload do not belong together.
func inflate(compressed []byte, want uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, want)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("stream shorter than declared %d bytes: %w", want, err)
	}

	var probe [1]byte
	switch _, err := io.ReadFull(zr, probe[:]); err {
	case io.EOF:
		return out, nil
	case nil:
		return nil, fmt.Errorf("stream longer than declared %d bytes", want)
	default:
		return nil, fmt.Errorf("stream did not end cleanly: %w", err)
	}
}
