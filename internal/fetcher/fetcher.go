package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/ublock-network-filters/internal/logging"
	"github.com/bnema/ublock-network-filters/internal/models"
)

// Fetcher reads filter list sources from a filesystem
type Fetcher struct {
	fs     afero.Fs
	logger *slog.Logger
}

// New creates a fetcher on fs. A nil logger discards output.
func New(fs afero.Fs, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Fetcher{fs: fs, logger: logger}
}

// Fetch reads the whole source at path, stopping early if ctx is cancelled
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := f.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: file})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	f.logger.Debug("fetched list", "path", path, "bytes", len(data))
	return data, nil
}

// Result is the outcome of reading one configured list
type Result struct {
	List models.FilterList
	Data []byte
	Err  error
}

// FetchAll reads every list concurrently. Per-list failures are reported in
// the results; only cancellation aborts the whole batch.
func (f *Fetcher) FetchAll(ctx context.Context, lists []models.FilterList) ([]Result, error) {
	results := make([]Result, len(lists))
	g, ctx := errgroup.WithContext(ctx)

	for i, list := range lists {
		i, list := i, list
		g.Go(func() error {
			data, err := f.Fetch(ctx, list.Path)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			results[i] = Result{List: list, Data: data, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
