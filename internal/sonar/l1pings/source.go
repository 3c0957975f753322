package l1pings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Source supplies the decoder's ping table.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// MemorySource serves records held in memory, for tests and for callers
// that decode in-process.
type MemorySource []Record

// Records returns a copy of the records.
func (m MemorySource) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Record, len(m))
	copy(out, m)
	return out, nil
}

// ParquetSource reads the ping table from a Parquet file.
type ParquetSource struct {
	Path      string
	BatchSize int // rows per read; 0 means 512
}

// Records reads every row of the file in batches.
func (s ParquetSource) Records(ctx context.Context) ([]Record, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ping table: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat ping table: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	batch := s.BatchSize
	if batch <= 0 {
		batch = 512
	}
	records := make([]Record, 0, pf.NumRows())
	rows := make([]Record, batch)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read ping table: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return records, nil
}

// WriteParquet writes records to path. The decoder side of the pipeline
// uses it to hand over ping tables; tests use it to build fixtures.
func WriteParquet(path string, records []Record) error {
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("failed to write ping table: %w", err)
	}
	return nil
}
