package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/garnizeh/ats/internal/projection"
)

// FileName is the name the collaborator gives the export.
const FileName = "applicants.csv"

// Source streams the CSV export; *atsapi.Client satisfies it.
type Source interface {
	ExportCSV(ctx context.Context, q url.Values, w io.Writer) (int64, error)
}

// Export downloads the applicant CSV for f into dir/applicants.csv. The file
// only appears once the download completed; a failed download leaves any
// previous export untouched.
func Export(ctx context.Context, src Source, dir string, f projection.Filter) (path string, n int64, err error) {
	if err := f.Validate(); err != nil {
		return "", 0, err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".applicants-*.csv")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	n, err = src.ExportCSV(ctx, f.Values(), tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", n, fmt.Errorf("export applicants: %w", err)
	}

	path = filepath.Join(dir, FileName)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", n, fmt.Errorf("move export into place: %w", err)
	}
	return path, n, nil
}

// CountRows returns the number of data rows in an export, header excluded.
func CountRows(r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows := 0
	for {
		_, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv: %w", err)
		}
		rows++
	}
	if rows == 0 {
		return 0, nil
	}
	return rows - 1, nil
}
