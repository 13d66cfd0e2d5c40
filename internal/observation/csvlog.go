package observation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/afero"

	"github.com/bioscout/bioscout/internal/errors"
	"github.com/bioscout/bioscout/internal/logger"
)

// CSVLog stores observations in a delimited file with a header row.
// Appends rewrite the whole file through a temporary file and rename, so a
// failed write leaves the previous contents in place. Appends within one
// process are serialized; separate processes sharing a file are not
// coordinated.
type CSVLog struct {
	fs   afero.Fs
	path string
	log  logger.Logger
	mu   sync.Mutex
}

var _ Log = (*CSVLog)(nil)

// NewCSVLog returns a log backed by path on fsys. The file is not touched
// until the first Load or Append.
func NewCSVLog(fsys afero.Fs, path string, log logger.Logger) *CSVLog {
	if log == nil {
		log = logger.Global().Module("observation")
	}
	return &CSVLog{fs: fsys, path: path, log: log.Module("csv")}
}

// Path returns the backing file path.
func (l *CSVLog) Path() string { return l.path }

// Load returns all observations in file order. A missing file is created
// with the header row only.
func (l *CSVLog) Load(ctx context.Context) ([]Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load()
}

// Append assigns ID = count + 1 and rewrites the file with entry appended.
// CRLF line breaks in free text are stored and returned as LF.
func (l *CSVLog) Append(ctx context.Context, entry Observation) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	if err := entry.Validate(); err != nil {
		return Observation{}, err
	}
	entry.NormalizeLineEndings()

	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return Observation{}, err
	}

	entry.ID = len(records) + 1
	if err := l.rewrite(append(records, entry)); err != nil {
		return Observation{}, err
	}

	l.log.Debug("observation appended",
		logger.Int("observation_id", entry.ID),
		logger.String("path", l.path))
	return entry, nil
}

func (l *CSVLog) load() ([]Observation, error) {
	f, err := l.fs.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l.initialize()
		}
		return nil, l.storageError(err, "open")
	}
	defer f.Close()

	records, err := decodeCSV(f)
	if err != nil {
		return nil, l.storageError(err, "decode")
	}
	return records, nil
}

// initialize writes a header-only file
func (l *CSVLog) initialize() ([]Observation, error) {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := l.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, l.storageError(err, "initialize")
		}
	}
	if err := l.rewrite(nil); err != nil {
		return nil, err
	}
	l.log.Info("initialized observation log", logger.String("path", l.path))
	return []Observation{}, nil
}

// rewrite replaces the backing file with header plus records
func (l *CSVLog) rewrite(records []Observation) error {
	tmp, err := afero.TempFile(l.fs, filepath.Dir(l.path), "."+filepath.Base(l.path)+"-*.tmp")
	if err != nil {
		return l.storageError(err, "create_temp")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = l.fs.Remove(tmpName)
		}
	}()

	if err := encodeCSV(tmp, records); err != nil {
		tmp.Close()
		return l.storageError(err, "write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return l.storageError(err, "sync")
	}
	if err := tmp.Close(); err != nil {
		return l.storageError(err, "close")
	}
	if err := l.fs.Rename(tmpName, l.path); err != nil {
		return l.storageError(err, "rename")
	}
	committed = true
	return nil
}

func (l *CSVLog) storageError(err error, operation string) error {
	l.log.Error("observation log operation failed",
		logger.String("operation", operation),
		logger.String("path", l.path),
		logger.Error(err))
	return errors.New(fmt.Errorf("observation log %s: %w", operation, err)).
		Component("observation").
		Category(errors.CategoryStorage).
		FileContext(l.path).
		Context("operation", operation).
		Build()
}

// decodeCSV parses a header row naming every column, in any order, followed by records.
func decodeCSV(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0 // every row must match the header's field count

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	records := []Observation{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		obs, err := decodeRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, obs)
	}
	return records, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}
	for _, name := range Columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	if len(index) != len(Columns) {
		return nil, fmt.Errorf("unexpected columns in header %v", header)
	}
	return index, nil
}

func decodeRow(row []string, index map[string]int) (Observation, error) {
	field := func(name string) string { return row[index[name]] }

	id, err := strconv.Atoi(field("observation_id"))
	if err != nil || id <= 0 {
		return Observation{}, fmt.Errorf("invalid observation_id %q", field("observation_id"))
	}
	date, err := ParseDate(field("date_observed"))
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		ID:           id,
		SpeciesName:  field("species_name"),
		DateObserved: date,
		Location:     field("location"),
		ImageURL:     field("image_url"),
		Notes:        field("notes"),
	}, nil
}

func encodeCSV(w io.Writer, records []Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i := range records {
		o := &records[i]
		row := []string{
			strconv.Itoa(o.ID),
			o.SpeciesName,
			o.DateObserved.String(),
			o.Location,
			o.ImageURL,
			o.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
