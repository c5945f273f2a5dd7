package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/tally/internal/pattern"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one file in ProcessAll. Exactly one of Result and Err is set.
type Outcome struct {
	Err      error
	Result   *Result
	Filename string
}

// ProcessAll runs uploads concurrently, up to Config.Concurrency at a time.
// One failing file does not stop the others. Outcomes keep the order of uploads.
// onDone, if set, is called as each file finishes and may be called concurrently.
func (p *Pipeline) ProcessAll(ctx context.Context, uploads []Upload, rules []pattern.Rule, onDone func(Outcome)) []Outcome {
	outcomes := make([]Outcome, len(uploads))

	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)

	for i, upload := range uploads {
		g.Go(func() error {
			out := Outcome{Filename: upload.Filename}
			if err := ctx.Err(); err != nil {
				out.Err = err
			} else {
				out.Result, out.Err = p.Process(ctx, upload, rules)
			}
			outcomes[i] = out
			if onDone != nil {
				onDone(out)
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// ReadFile loads a statement file from disk, rejecting oversized files before reading them.
func (p *Pipeline) ReadFile(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > p.config.MaxFileSize {
		return Upload{}, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrFileTooLarge, path, info.Size(), p.config.MaxFileSize)
	}

	content, err := os.ReadFile(path) //nolint:gosec // reading user-specified statement files is intended
	if err != nil {
		return Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return Upload{Filename: filepath.Base(path), Content: content}, nil
}
