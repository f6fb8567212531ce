package sink

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"creativeflow/internal/creative"
	"creativeflow/internal/language"
	"creativeflow/internal/logging"
	"creativeflow/internal/services"
	"creativeflow/internal/services/sheets"
)

// DateLayout is the format of the Generated Date column.
const DateLayout = creative.SheetDateLayout

// Columns is the header row written into new destination tabs.
var Columns = []string{
	"Generated Date",
	"Title",
	"Script",
	"Native Script",
	"Recording Language",
	"Reasoning",
	"Target Metrics",
	"Audio",
	"Video",
	"Error",
}

// Option customizes a Sink.
type Option func(*Sink)

// WithClock overrides the timestamp source used for Generated Date.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// Sink writes to and reads from destination tabs.
type Sink struct {
	table  sheets.Table
	now    func() time.Time
	logger *slog.Logger
}

// New builds a Sink over table.
func New(table sheets.Table, logger *slog.Logger, opts ...Option) *Sink {
	s := &Sink{
		table:  table,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "sink"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendSuggestions appends one row per suggestion, creating the tab and its
// header when needed. It reports whether the rows were saved; the caller
// keeps the suggestions regardless.
func (s *Sink) AppendSuggestions(ctx context.Context, destinationRef, tab string, suggestions []creative.ScriptSuggestion) (bool, error) {
	if strings.TrimSpace(destinationRef) == "" {
		return false, services.Wrap(services.ErrSinkWriteFailed, "persisting", "append", "missing destination reference", nil)
	}
	if len(suggestions) == 0 {
		return true, nil
	}
	logger := logging.WithContext(ctx, s.logger)

	existing, err := s.table.ReadRows(ctx, destinationRef, tab)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			return false, services.Wrap(services.ErrSinkWriteFailed, "persisting", "read tab", tab, err)
		}
		if err := s.table.EnsureTab(ctx, destinationRef, tab); err != nil {
			return false, services.Wrap(services.ErrSinkWriteFailed, "persisting", "create tab", tab, err)
		}
		logger.Info("created destination tab", logging.String("tab", tab))
		existing = nil
	}

	rows := make([][]string, 0, len(suggestions)+1)
	if len(existing) == 0 {
		rows = append(rows, append([]string(nil), Columns...))
	}
	stamp := s.now().UTC().Format(DateLayout)
	for _, sug := range suggestions {
		rows = append(rows, Row(sug, stamp))
	}
	if err := s.table.AppendRows(ctx, destinationRef, tab, rows); err != nil {
		return false, services.Wrap(services.ErrSinkWriteFailed, "persisting", "append", tab, err)
	}
	logger.Info("suggestions saved",
		logging.String("tab", tab),
		logging.Int("rows", len(suggestions)),
	)
	return true, nil
}

// Row renders one suggestion in Columns order.
func Row(s creative.ScriptSuggestion, stamp string) []string {
	lang := s.Language
	if lang == "" {
		lang = language.English
	}
	var stageErr string
	if s.StageError != nil {
		stageErr = s.StageError.Error()
	}
	return []string{
		stamp,
		s.Title,
		s.Content,
		s.NativeContent,
		lang,
		s.Reasoning,
		strings.Join(s.TargetMetrics, ", "),
		s.AudioRef,
		s.VideoRef,
		stageErr,
	}
}

// ReadExistingScripts parses a destination tab back into rows. Rows without
// any script text are skipped. Row numbers are 1-based sheet rows.
func (s *Sink) ReadExistingScripts(ctx context.Context, destinationRef, tab string) ([]creative.ExistingScriptRow, error) {
	if strings.TrimSpace(destinationRef) == "" {
		return nil, services.Wrap(services.ErrValidation, "sink", "read", "spreadsheetId is required", nil)
	}
	rows, err := s.table.ReadRows(ctx, destinationRef, tab)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "sink", "read", "tab "+tab, err)
	}
	out := []creative.ExistingScriptRow{}
	if len(rows) < 2 {
		return out, nil
	}

	cols := locateColumns(sheets.NewHeader(rows[0]))
	for i, row := range rows[1:] {
		existing := creative.ExistingScriptRow{
			Row:               i + 2,
			Title:             sheets.Cell(row, cols.title),
			Content:           sheets.Cell(row, cols.content),
			NativeContent:     sheets.Cell(row, cols.native),
			RecordingLanguage: sheets.Cell(row, cols.language),
		}
		if !existing.HasContent() {
			continue
		}
		if raw := sheets.Cell(row, cols.date); raw != "" {
			if date, err := creative.ParseSheetDate(raw); err == nil {
				existing.GeneratedDate = date
			}
		}
		out = append(out, existing)
	}
	return out, nil
}

// ListTabs returns the tab names of a spreadsheet.
func (s *Sink) ListTabs(ctx context.Context, destinationRef string) ([]string, error) {
	if strings.TrimSpace(destinationRef) == "" {
		return nil, services.Wrap(services.ErrValidation, "sink", "list tabs", "spreadsheetId is required", nil)
	}
	tabs, err := s.table.ListTabs(ctx, destinationRef)
	if err != nil {
		return nil, err
	}
	return tabs, nil
}

type columns struct {
	date, title, content, native, language int
}

func locateColumns(h sheets.Header) columns {
	c := columns{
		date:     h.Find("generated date", "date"),
		title:    h.Find("title"),
		native:   h.Find("native script", "native"),
		content:  h.Find("script", "english script", "content", "copy"),
		language: h.Find("recording language", "language"),
	}
	if c.content == c.native {
		c.content = h.Find("content", "copy")
	}
	return c
}
