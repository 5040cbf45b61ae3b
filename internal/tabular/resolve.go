package tabular

import (
	"strings"

	"github.com/pulsedash/pulsedash/internal/models"
)

// dateTokens mark headers that plausibly hold a calendar date. The sources
// come in several languages.
var dateTokens = []string{
	"date", "day", "period",
	"дата", "день", "период", "період",
	"datum", "fecha",
}

// Resolve turns the classifier's metric-to-header mapping into metric-to-index
// against the actual headers. Matching is case-insensitive and trimmed. A
// metric whose header is empty or not found is left out; aggregation treats
// that as zero. When the classifier named no date column, the first header
// containing a date token is used instead, so date filtering survives a
// classifier that skipped it.
func Resolve(mapping models.ColumnMapping, headers []string) models.IndexMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = norm(h)
	}

	idx := make(models.IndexMapping)
	for _, metric := range models.Metrics {
		name := norm(mapping[metric])
		if name == "" {
			continue
		}
		for i, h := range normalized {
			if h == name {
				idx[metric] = i
				break
			}
		}
	}

	if _, ok := idx[models.MetricDate]; !ok {
		if i, ok := guessDateColumn(normalized); ok {
			idx[models.MetricDate] = i
		}
	}
	return idx
}

func guessDateColumn(normalized []string) (int, bool) {
	for i, h := range normalized {
		for _, tok := range dateTokens {
			if strings.Contains(h, tok) {
				return i, true
			}
		}
	}
	return 0, false
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
