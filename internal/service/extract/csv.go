package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// extractCSV renders each data row as "header: value" pairs joined by ", ",
// one row per line. Ragged rows are paired up to the shorter of header and row.
func extractCSV(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read row: %w", err)
		}
		n := min(len(header), len(record))
		pairs := make([]string, 0, n)
		for i := 0; i < n; i++ {
			pairs = append(pairs, header[i]+": "+record[i])
		}
		rows = append(rows, strings.Join(pairs, ", "))
	}
	return strings.Join(rows, "\n"), nil
}
