package performance

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
	"creativeflow/internal/services"
	"creativeflow/internal/services/sheets"
	"creativeflow/internal/textutil"
)

// duplicateThreshold is the cosine similarity above which two examples are
// treated as the same script.
const duplicateThreshold = 0.9

var (
	contentHeaders = []string{"script", "content", "copy", "text"}
	scoreHeaders   = []string{"score", "usage", "performance", "uses", "ctr"}
)

// Source fetches scored examples through a sheets.Table.
type Source struct {
	table  sheets.Table
	limit  int
	logger *slog.Logger
}

// NewSource builds a Source. A limit <= 0 returns every usable row.
func NewSource(table sheets.Table, limit int, logger *slog.Logger) *Source {
	return &Source{
		table:  table,
		limit:  limit,
		logger: logging.NewComponentLogger(logger, "performance"),
	}
}

// FetchScoredExamples returns usable rows sorted by score, highest first.
func (s *Source) FetchScoredExamples(ctx context.Context, sourceRef, tab string) ([]creative.ScoredExample, error) {
	if strings.TrimSpace(sourceRef) == "" {
		return nil, services.Wrap(services.ErrSourceUnavailable, "sourcing", "read", "missing source reference", nil)
	}
	rows, err := s.table.ReadRows(ctx, sourceRef, tab)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "sourcing", "read", "tab "+tab, err)
	}
	logger := logging.WithContext(ctx, s.logger)
	if len(rows) < 2 {
		logger.Info("performance tab has no data rows", logging.String("tab", tab), logging.Int("rows", len(rows)))
		return []creative.ScoredExample{}, nil
	}

	examples, dropped := parseRows(rows)
	if len(examples) == 0 && sheets.NewHeader(rows[0]).Find(contentHeaders...) < 0 {
		logging.WarnWithContext(logger, "performance tab has no recognizable script column", "source_header_missing",
			logging.String("tab", tab),
			logging.String(logging.FieldErrorHint, "name a column Script, Content, Copy, or Text"),
			logging.String(logging.FieldImpact, "generation falls back to guidance only"),
		)
	}
	if dropped > 0 {
		logger.Debug("dropped unusable performance rows", logging.Int("dropped", dropped))
	}

	slices.SortStableFunc(examples, func(a, b creative.ScoredExample) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	examples, collapsed := collapseNearDuplicates(examples)
	if collapsed > 0 {
		logger.Debug("collapsed near-duplicate performance rows", logging.Int("collapsed", collapsed))
	}
	if s.limit > 0 && len(examples) > s.limit {
		examples = examples[:s.limit]
	}
	logger.Info("loaded performance examples", logging.String("tab", tab), logging.Int("examples", len(examples)))
	return examples, nil
}

func parseRows(rows [][]string) ([]creative.ScoredExample, int) {
	header := sheets.NewHeader(rows[0])
	contentIdx := header.Find(contentHeaders...)
	scoreIdx := header.Find(scoreHeaders...)
	if contentIdx < 0 || scoreIdx < 0 {
		return []creative.ScoredExample{}, len(rows) - 1
	}

	examples := make([]creative.ScoredExample, 0, len(rows)-1)
	dropped := 0
	for _, row := range rows[1:] {
		content := sheets.Cell(row, contentIdx)
		score, ok := parseScore(sheets.Cell(row, scoreIdx))
		if content == "" || !ok {
			dropped++
			continue
		}
		examples = append(examples, creative.ScoredExample{Content: content, Score: score})
	}
	return examples, dropped
}

// parseScore accepts plain numbers plus thousands separators and percentages.
func parseScore(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// collapseNearDuplicates keeps the first of each group of near-identical
// examples. Input must already be sorted by score so the best variant wins.
func collapseNearDuplicates(examples []creative.ScoredExample) ([]creative.ScoredExample, int) {
	kept := make([]creative.ScoredExample, 0, len(examples))
	prints := make([]*textutil.Fingerprint, 0, len(examples))
	for _, ex := range examples {
		fp := textutil.NewFingerprint(ex.Content)
		duplicate := false
		for _, seen := range prints {
			if textutil.CosineSimilarity(fp, seen) >= duplicateThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, ex)
		prints = append(prints, fp)
	}
	return kept, len(examples) - len(kept)
}
