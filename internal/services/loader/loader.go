// Package loader reads the raw snapshot rows from a JSON file or URL.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/obchart/internal/domain"
	"github.com/vadiminshakov/obchart/pkg/retrier"
	"go.uber.org/zap"
)

// ErrUnexpectedStatus is returned when the data URL answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Loader fetches rows from a path or an http(s) URL.
type Loader struct {
	client  *http.Client
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// New creates a loader. A nil client means http.DefaultClient.
func New(logger *zap.Logger, client *http.Client, r *retrier.Retrier) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if r == nil {
		r = retrier.New()
	}
	return &Loader{client: client, retrier: r, logger: logger}
}

// Load dispatches on the source: http:// and https:// are fetched, anything else is read from disk.
func (l *Loader) Load(ctx context.Context, source string) ([]domain.Row, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.FromURL(ctx, source)
	}
	return FromFile(source)
}

// FromFile reads rows from a JSON file.
func FromFile(path string) ([]domain.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open data file")
	}
	defer f.Close()

	return DecodeRows(f)
}

// FromURL fetches rows over HTTP, retrying transport errors and 5xx answers.
func (l *Loader) FromURL(ctx context.Context, url string) ([]domain.Row, error) {
	return retrier.DoWithData(ctx, l.retrier, func(ctx context.Context) ([]domain.Row, error) {
		rows, err := l.fetch(ctx, url)
		if err != nil {
			l.logger.Warn("failed to fetch snapshot data", zap.String("url", url), zap.Error(err))
		}
		return rows, err
	})
}

func (l *Loader) fetch(ctx context.Context, url string) ([]domain.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retrier.Permanent(errors.Wrap(err, "build data request"))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch data")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := errors.Wrap(ErrUnexpectedStatus, fmt.Sprintf("GET %s: %d", url, resp.StatusCode))
		if resp.StatusCode < 500 {
			return nil, retrier.Permanent(err)
		}
		return nil, err
	}

	rows, err := DecodeRows(resp.Body)
	if err != nil {
		return nil, retrier.Permanent(err)
	}
	return rows, nil
}

// DecodeRows decodes a JSON array of flat objects. Numbers keep their exact text.
func DecodeRows(r io.Reader) ([]domain.Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode snapshot rows")
	}

	rows := make([]domain.Row, len(raw))
	for i, m := range raw {
		rows[i] = domain.Row(m)
	}
	return rows, nil
}
