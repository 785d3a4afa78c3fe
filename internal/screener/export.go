package screener

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/esg-screener/server/internal/agent/model"
)

var baseColumns = []string{"rank", "ticker", "name", "sector", "score"}

// ExportFile is a ranked result read back from disk.
type ExportFile struct {
	Attributes []model.Attribute
	Results    []model.ScoredRecord
}

// ExportName is the file name used for the first n results of r.
func ExportName(r *model.Ranking, n int) string {
	return fmt.Sprintf("top%d_%s.csv", n, r.Criteria.Slug(model.DefaultSlugLen))
}

// Export writes the first n results of r to dir and returns the file path.
// A non-positive n exports the displayed count.
func Export(dir string, r *model.Ranking, n int) (string, error) {
	if n <= 0 {
		n = r.TopN
	}
	view := Top(r.Results, n)
	if len(view) == 0 {
		return "", errors.New("nothing to export")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, ExportName(r, len(view)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := writeExport(f, r.Criteria.Attributes(), view); err != nil {
		f.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

func writeExport(w io.Writer, attrs []model.Attribute, results []model.ScoredRecord) error {
	cw := csv.NewWriter(w)
	header := append([]string{}, baseColumns...)
	for _, a := range attrs {
		header = append(header, string(a))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, sr := range results {
		row := []string{
			strconv.Itoa(sr.Rank),
			sr.Record.Ticker,
			sr.Record.Name,
			sr.Record.Sector,
			formatFloat(sr.Score),
		}
		for _, a := range attrs {
			v, ok := sr.Record.Value(a)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatFloat uses the shortest representation that parses back to the same value.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Import reads a file written by Export.
func Import(path string) (*ExportFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read export %s: empty file", path)
	}
	header := rows[0]
	if len(header) < len(baseColumns) {
		return nil, fmt.Errorf("read export %s: short header", path)
	}
	for i, c := range baseColumns {
		if header[i] != c {
			return nil, fmt.Errorf("read export %s: column %d is %q, want %q", path, i, header[i], c)
		}
	}

	out := &ExportFile{}
	for _, h := range header[len(baseColumns):] {
		a, ok := model.ParseAttribute(h)
		if !ok {
			return nil, fmt.Errorf("read export %s: unknown attribute column %q", path, h)
		}
		out.Attributes = append(out.Attributes, a)
	}

	for line, row := range rows[1:] {
		rank, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("read export %s line %d: rank: %w", path, line+2, err)
		}
		score, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("read export %s line %d: score: %w", path, line+2, err)
		}
		rec := &model.CompanyRecord{
			Ticker:  row[1],
			Name:    row[2],
			Sector:  row[3],
			Metrics: make(map[model.Attribute]float64, len(out.Attributes)),
		}
		for i, a := range out.Attributes {
			cell := row[len(baseColumns)+i]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("read export %s line %d: %s: %w", path, line+2, a, err)
			}
			rec.Metrics[a] = v
		}
		out.Results = append(out.Results, model.ScoredRecord{Record: rec, Score: score, Rank: rank})
	}
	return out, nil
}
