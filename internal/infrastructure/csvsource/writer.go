package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// WriteFrame writes frame as a headed CSV in column order.
func WriteFrame(out io.Writer, frame *model.Frame) error {
	cw := csv.NewWriter(out)
	columns := frame.Columns()
	if err := cw.Write(frame.Names()); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for i := 0; i < frame.Rows(); i++ {
		for j, c := range columns {
			row[j] = c.StringAt(i)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes frame to path, creating parent directories.
func WriteFile(path string, frame *model.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csvsource: create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvsource: create %s: %w", path, err)
	}
	if err := WriteFrame(f, frame); err != nil {
		_ = f.Close()
		return fmt.Errorf("csvsource: write %s: %w", path, err)
	}
	return f.Close()
}
