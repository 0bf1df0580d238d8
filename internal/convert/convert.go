// package convert turns tabular artist records into newline-delimited JSON
// task payloads for the remote batch-processing API.
package convert

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
)

// taskURL is the fixed per-task endpoint path embedded in every payload.
const taskURL = "/v1/responses"

// Column names required in headered input, in positional order for
// headerless input.
var columns = []string{"artist_id", "artist_name", "artist_data"}

// Record is one validated input row. ID and Name are non-empty after
// trimming; Data may be empty.
type Record struct {
	ID   string
	Name string
	Data string
}

// Variables carries the per-artist prompt substitutions.
type Variables struct {
	ArtistName string `json:"artist_name"`
	ArtistData string `json:"artist_data"`
}

// Prompt identifies the remote prompt plus its variables. Version is
// omitted entirely when not configured.
type Prompt struct {
	ID        string    `json:"id"`
	Version   string    `json:"version,omitempty"`
	Variables Variables `json:"variables"`
}

// TaskBody is the opaque request body submitted per task.
type TaskBody struct {
	Prompt Prompt `json:"prompt"`
}

// Task is one serialized unit of work, one JSONL line per valid Record.
type Task struct {
	CustomID string   `json:"custom_id"`
	Method   string   `json:"method"`
	URL      string   `json:"url"`
	Body     TaskBody `json:"body"`
}

// BuildTask maps one Record to its Task deterministically.
func BuildTask(rec Record, promptID, promptVersion string) Task {
	return Task{
		CustomID: rec.ID,
		Method:   "POST",
		URL:      taskURL,
		Body: TaskBody{
			Prompt: Prompt{
				ID:      promptID,
				Version: promptVersion,
				Variables: Variables{
					ArtistName: rec.Name,
					ArtistData: rec.Data,
				},
			},
		},
	}
}

// Stats accumulates counts while the input is consumed. In lenient mode
// Written + Skipped == Read holds after a full pass.
type Stats struct {
	Read    int `json:"read"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

// Options configures a conversion run.
type Options struct {
	PromptID      string
	PromptVersion string
	Limit         int  // stop after this many data rows; 0 means no limit
	SkipHeader    bool // input has no header row, columns are positional
	Strict        bool // abort on the first invalid row instead of skipping
}

// Converter reads records one at a time and writes one Task per valid row,
// so arbitrarily large inputs never need to fit in memory.
type Converter struct {
	opts   Options
	logger *log.Logger
}

// NewConverter creates a Converter. A nil logger falls back to the default
// stderr logger.
func NewConverter(opts Options, logger *log.Logger) *Converter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Converter{opts: opts, logger: logger}
}

// Run streams r into w. It returns final Stats and a fatal error for
// unreadable/malformed input, a write failure, or (in strict mode) the
// first invalid row. Tasks already written are never retracted.
func (c *Converter) Run(r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // field counts are validated per row

	idx, err := c.columnIndexes(reader)
	if err != nil {
		return stats, err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for {
		if c.opts.Limit > 0 && stats.Read >= c.opts.Limit {
			break
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("malformed input: %w", err)
		}

		stats.Read++
		rec, err := c.parseRow(row, idx, stats.Read)
		if err != nil {
			if c.opts.Strict {
				return stats, err
			}
			stats.Skipped++
			c.logger.Warn("skipping row", "row", stats.Read, "reason", err)
			continue
		}

		task := BuildTask(rec, c.opts.PromptID, c.opts.PromptVersion)
		if err := enc.Encode(task); err != nil {
			return stats, fmt.Errorf("failed to write task for %s: %w", rec.ID, err)
		}
		stats.Written++
		c.logger.Debug("wrote task", "row", stats.Read, "custom_id", rec.ID)
	}

	return stats, nil
}

// columnIndexes resolves the field index of each required column. With a
// header row present the columns are matched by name (extra columns are
// tolerated); without one the first three positions are assumed.
func (c *Converter) columnIndexes(reader *csv.Reader) ([]int, error) {
	if c.opts.SkipHeader {
		return []int{0, 1, 2}, nil
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: input is empty, expected header with columns %s",
			shared.ErrInvalidHeader, strings.Join(columns, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("malformed input: %w", err)
	}

	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	idx := make([]int, len(columns))
	for i, name := range columns {
		pos, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: header must contain %s; found: %s",
				shared.ErrInvalidHeader, strings.Join(columns, ", "), strings.Join(header, ", "))
		}
		idx[i] = pos
	}
	return idx, nil
}

// parseRow trims and validates one data row. The row must carry every
// expected field; artist_id and artist_name must be non-empty after
// trimming, artist_data may be empty.
func (c *Converter) parseRow(row []string, idx []int, rowNum int) (Record, error) {
	if c.opts.SkipHeader && len(row) != len(columns) {
		return Record{}, fmt.Errorf("%w: row %d: expected %d columns, got %d",
			shared.ErrInvalidRow, rowNum, len(columns), len(row))
	}
	for _, pos := range idx {
		if pos >= len(row) {
			return Record{}, fmt.Errorf("%w: row %d: expected %d columns, got %d",
				shared.ErrInvalidRow, rowNum, len(idx), len(row))
		}
	}

	rec := Record{
		ID:   strings.TrimSpace(row[idx[0]]),
		Name: strings.TrimSpace(row[idx[1]]),
		Data: strings.TrimSpace(row[idx[2]]),
	}

	if rec.ID == "" || rec.Name == "" {
		return Record{}, fmt.Errorf("%w: row %d: artist_id and artist_name are required",
			shared.ErrInvalidRow, rowNum)
	}
	return rec, nil
}
