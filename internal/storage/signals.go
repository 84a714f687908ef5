// Package storage persists the daily signal files and the backtest summary.
//
// A signals file holds every scored article of one run, one CSV row per
// article, named after the UTC run date: signals_YYYY-MM-DD.csv.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seenimoa/graintel/pkg/models"
)

// DateLayout is the date format used in signal file names.
const DateLayout = "2006-01-02"

const (
	signalsPrefix = "signals_"
	signalsExt    = ".csv"
	riskSeparator = "; "
)

var (
	// ErrNotFound is returned when a requested file does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrNoSignals is returned when there is nothing to save or read.
	ErrNoSignals = errors.New("storage: no signals")
)

// SignalColumns is the CSV header of a signals file.
var SignalColumns = []string{
	"url", "title", "summary", "text", "analysis", "impact", "outlook", "risks",
	"commodity", "event_type", "sentiment", "source_group", "source_name",
	"published", "fetched_at",
	"alert_score", "alert_severity", "alert_tags", "sentiment_score",
}

// SignalFile is a signals file found on disk.
type SignalFile struct {
	Path string
	Date time.Time
}

// SignalsFileName returns the file name for the given run day (UTC).
func SignalsFileName(day time.Time) string {
	return signalsPrefix + day.UTC().Format(DateLayout) + signalsExt
}

// ParseSignalsFileName extracts the date from a signals file name.
func ParseSignalsFileName(name string) (time.Time, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, signalsPrefix) || !strings.HasSuffix(base, signalsExt) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(base, signalsPrefix), signalsExt)
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// SaveSignals writes records to dir/signals_<day>.csv, replacing any file of
// the same day. It returns the written path, or ErrNoSignals when records is
// empty.
func SaveSignals(dir string, day time.Time, records []models.ArticleRecord) (string, error) {
	if len(records) == 0 {
		return "", ErrNoSignals
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, SignalsFileName(day))
	if err := writeFileAtomic(path, func(w io.Writer) error {
		return WriteSignals(w, records)
	}); err != nil {
		return "", fmt.Errorf("save signals: %w", err)
	}

	log.Info().Int("articles", len(records)).Str("path", path).Msg("signals saved")
	return path, nil
}

// WriteSignals encodes records as CSV with a SignalColumns header.
func WriteSignals(w io.Writer, records []models.ArticleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SignalColumns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(recordRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSignals decodes a signals CSV. Columns are matched by header name, so
// files with missing or extra columns still load; absent fields take their
// fallback values.
func ReadSignals(r io.Reader) ([]models.ArticleRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out []models.ArticleRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		m := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			if col == "risks" {
				m[col] = splitRisks(row[i])
				continue
			}
			m[col] = row[i]
		}
		out = append(out, models.ArticleFromMap(m))
	}
	return out, nil
}

// LoadSignals reads the signals file at path.
func LoadSignals(path string) ([]models.ArticleRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadSignals(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}

// ListSignalFiles returns the signals files of dir sorted by date, oldest
// first. Files whose name carries no valid date are skipped.
func ListSignalFiles(dir string) ([]SignalFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, signalsPrefix+"*"+signalsExt))
	if err != nil {
		return nil, err
	}

	files := make([]SignalFile, 0, len(matches))
	for _, p := range matches {
		d, ok := ParseSignalsFileName(p)
		if !ok {
			log.Warn().Str("file", filepath.Base(p)).Msg("invalid date in signals file name")
			continue
		}
		files = append(files, SignalFile{Path: p, Date: d})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Date.Before(files[j].Date) })
	return files, nil
}

// LatestSignals returns the newest signals file of dir.
func LatestSignals(dir string) (SignalFile, error) {
	files, err := ListSignalFiles(dir)
	if err != nil {
		return SignalFile{}, err
	}
	if len(files) == 0 {
		return SignalFile{}, fmt.Errorf("%w: no signals file in %s", ErrNotFound, dir)
	}
	return files[len(files)-1], nil
}

func recordRow(r models.ArticleRecord) []string {
	return []string{
		r.URL,
		r.Title,
		r.Summary,
		r.Text,
		r.Analysis,
		r.Impact,
		r.Outlook,
		strings.Join(r.Risks, riskSeparator),
		string(r.Commodity),
		string(r.EventType),
		string(r.Sentiment),
		r.SourceGroup,
		r.SourceName,
		r.Published,
		r.FetchedAt,
		strconv.Itoa(r.AlertScore),
		string(r.AlertSeverity),
		r.AlertTags,
		strconv.Itoa(r.SentimentScore),
	}
}

func splitRisks(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
