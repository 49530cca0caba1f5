package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ezoic/superstore/pkg/log"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// DefaultHTTPClient is used by Load for http(s) sources.
var DefaultHTTPClient = &http.Client{Timeout: 2 * time.Minute}

// Load reads a CSV of order records from an http(s) URL or a local path.
// The first column is taken as the row index.
func Load(ctx context.Context, source string) (*Frame, error) {
	logger := log.GetLoggerWithName("dataset")
	start := time.Now()

	rc, err := open(ctx, source)
	if err != nil {
		logger.Error("Load failed", err, log.SourceKey, source)
		return nil, err
	}
	defer rc.Close()

	frame, err := Read(rc)
	if err != nil {
		return nil, ssErrors.Wrapf(err, "dataset: parse %s", source)
	}

	rows, cols := frame.Shape()
	logger.Info("Feature frame loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, source,
		log.SamplesKey, rows,
		log.ColumnsKey, cols,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return frame, nil
}

func open(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, ssErrors.Wrapf(err, "dataset: build request for %s", source)
		}
		resp, err := DefaultHTTPClient.Do(req)
		if err != nil {
			return nil, ssErrors.Wrapf(err, "dataset: fetch %s", source)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, ssErrors.Newf("dataset: fetch %s: unexpected status %s", source, resp.Status)
		}
		return resp.Body, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, ssErrors.WithStack(err)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, ssErrors.Wrapf(err, "dataset: open %s", source)
	}
	return f, nil
}

// Read parses CSV with a header row whose first column is the index.
func Read(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ssErrors.Wrap(ssErrors.ErrEmptyData, "dataset: missing header row")
	}
	if err != nil {
		return nil, ssErrors.Wrap(err, "dataset: read header")
	}
	if len(header) < 2 {
		return nil, ssErrors.NewValueError("dataset.Read", "header needs an index column and at least one data column")
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	columns := make([]string, len(header)-1)
	for i, name := range header[1:] {
		columns[i] = strings.TrimSpace(name)
	}

	var index []string
	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ssErrors.Wrap(err, "dataset: read record")
		}
		index = append(index, record[0])
		rows = append(rows, record[1:])
	}
	if index == nil {
		index = []string{}
	}
	return NewFrame(columns, index, rows)
}
