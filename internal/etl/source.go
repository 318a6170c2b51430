package etl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
)

// Frame is the untyped tabular form of the source file. Every cell is text.
type Frame struct {
	names []string
	df    dataframe.DataFrame
}

// Names returns the column names as they appear in the header.
func (f *Frame) Names() []string { return f.names }

// Len returns the number of data rows.
func (f *Frame) Len() int {
	if f.df.Ncol() == 0 {
		return 0
	}
	return f.df.Nrow()
}

// Rows returns the data rows without the header.
func (f *Frame) Rows() [][]string {
	if f.Len() == 0 {
		return nil
	}
	return f.df.Records()[1:]
}

// ReadSource loads the admissions CSV at path. An empty or header-only file
// yields an empty frame.
func ReadSource(ctx context.Context, path string) (*Frame, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return readFrame(ctx, f)
}

func readFrame(ctx context.Context, r io.Reader) (*Frame, error) {
	// Trim the byte order marker spreadsheet exports tend to add
	cr := csv.NewReader(utfbom.SkipOnly(r))
	cr.FieldsPerRecord = 0

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read source csv: %w", err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return &Frame{}, nil
	}
	if len(records) == 1 {
		return &Frame{names: records[0]}, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to load source frame: %w", df.Err)
	}

	return &Frame{names: records[0], df: df}, nil
}
