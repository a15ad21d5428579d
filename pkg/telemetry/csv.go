package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

var csvHeader = []string{"timestamp", "m1", "m2", "m3", "m4", "m5", "m6"}

// CSV appends samples to a CSV file, one row per sample.
type CSV struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// OpenCSV opens path for appending, writing the header if the file is new
// or empty.
func OpenCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv: %w", err)
	}

	c := &CSV{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := c.write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return c, nil
}

// Record writes one row and flushes it.
func (c *CSV) Record(s Sample) error {
	row := make([]string, 0, len(csvHeader))
	row = append(row, s.Time.Format(time.RFC3339Nano))
	for _, p := range s.Positions {
		row = append(row, strconv.FormatFloat(p, 'f', 2, 64))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(row)
}

func (c *CSV) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Close closes the file.
func (c *CSV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.Close()
}
