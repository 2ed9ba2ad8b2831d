package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrIngestion is returned when the catalog cannot be opened or parsed.
var ErrIngestion = errors.New("catalog ingestion failed")

// Column names expected in the catalog header.
const (
	ColID          = "id"
	ColTitle       = "title"
	ColOverview    = "overview"
	ColGenres      = "genres"
	ColReleaseDate = "release_date"
	ColRuntime     = "runtime"
	ColCredits     = "credits"
)

var requiredColumns = []string{ColID, ColTitle}

// Record is one normalized catalog row.
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	Genres      string `json:"genres"`
	ReleaseDate string `json:"release_date"`
	Runtime     string `json:"runtime"`
	Credits     string `json:"credits"`
	// Text is the canonical encoding of the record, used as the embedding input.
	Text string `json:"text"`
}

// Read opens a Latin-1 encoded CSV file and returns its records in file order.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrIngestion, path, err)
	}
	defer f.Close()

	return ReadFrom(charmap.ISO8859_1.NewDecoder().Reader(f))
}

// ReadFrom parses CSV rows from r, which must already be UTF-8.
// The first row is the header; columns are mapped by name.
func ReadFrom(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrIngestion)
		}
		return nil, fmt.Errorf("%w: failed to read header: %w", ErrIngestion, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: header is missing column %q", ErrIngestion, col)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrIngestion, line, err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		// The canonical text keeps cells as read; only the stored fields are trimmed.
		raw := Record{
			Title:       field(ColTitle),
			Overview:    field(ColOverview),
			Genres:      field(ColGenres),
			ReleaseDate: field(ColReleaseDate),
			Runtime:     field(ColRuntime),
			Credits:     field(ColCredits),
		}
		rec := Record{
			ID:          strings.TrimSpace(field(ColID)),
			Title:       strings.TrimSpace(raw.Title),
			Overview:    strings.TrimSpace(raw.Overview),
			Genres:      strings.TrimSpace(raw.Genres),
			ReleaseDate: strings.TrimSpace(raw.ReleaseDate),
			Runtime:     strings.TrimSpace(raw.Runtime),
			Credits:     strings.TrimSpace(raw.Credits),
			Text:        CanonicalText(raw),
		}
		records = append(records, rec)
	}

	return records, nil
}
