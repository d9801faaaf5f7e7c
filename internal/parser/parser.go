// Package parser turns raw model output into row records, trying
// increasingly aggressive repair strategies until one parses.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"sheet-translator/internal/domain"
	"sheet-translator/internal/repair"
)

var keyValueLinePattern = regexp.MustCompile(`^\s*"?([^":]+?)"?\s*:\s*(.+?),?\s*$`)

// Parser applies an ordered list of cleanup strategies to model output.
// The first strategy whose result parses wins.
type Parser struct {
	logger      *zap.Logger
	lineSalvage bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithLineSalvage enables the last-resort line-oriented extraction of
// key/value pairs when no array or object structure can be recovered at all.
// Its output is low fidelity; callers must treat it as suspect.
func WithLineSalvage() Option {
	return func(p *Parser) { p.lineSalvage = true }
}

func New(logger *zap.Logger, opts ...Option) *Parser {
	p := &Parser{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type strategy struct {
	name  string
	clean func(string) string
}

func lightClean(s string) string {
	t := repair.StripCodeFences(s)
	t = repair.StripLeadingBackslashes(t)
	t = repair.UnwrapQuoted(t)
	t = repair.RemoveExportArtifacts(t)
	t = repair.QuoteBareNumerals(t)
	return repair.EscapeControlChars(t)
}

func backslashStripClean(s string) string {
	return strings.ReplaceAll(lightClean(s), `\`, "")
}

func strategies() []strategy {
	return []strategy{
		{name: "light_cleanup", clean: lightClean},
		{name: "backslash_strip", clean: backslashStripClean},
		{name: "trim_preamble", clean: func(s string) string {
			return backslashStripClean(repair.TrimToJSONStart(s))
		}},
		{name: "aggressive_repair", clean: func(s string) string {
			return repair.AggressiveRepair(repair.BalanceStrings(repair.Preprocess(s)))
		}},
		{name: "manual_extraction", clean: extractArrayBody},
	}
}

// extractArrayBody treats the substring between the first '[' and the last
// ']' as the array body. Returns "" when no such span exists, which makes
// the decode step fail and the strategy fall through.
func extractArrayBody(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return ""
	}
	body := s[start : end+1]
	body = strings.ReplaceAll(body, `\`, "")
	return repair.QuoteBareNumerals(body)
}

// Parse produces an array of rows from raw model text. It fails with
// *ParseExhaustedError only after every strategy has failed.
func (p *Parser) Parse(text string) ([]domain.Row, error) {
	var lastErr error
	for _, s := range strategies() {
		rows, err := decode(s.clean(text))
		if err == nil {
			return rows, nil
		}
		lastErr = err
		p.logger.Debug("parse strategy failed",
			zap.String("strategy", s.name),
			zap.Error(err),
		)
	}

	if p.lineSalvage {
		if row, ok := salvageKeyValueLines(text); ok {
			p.logger.Warn("recovered response via line-oriented salvage; result is low fidelity")
			return []domain.Row{row}, nil
		}
	}

	return nil, &ParseExhaustedError{Raw: text, LastErr: lastErr}
}

// decode parses cleaned text and coerces it into a row slice. A single
// object becomes a one-row array.
func decode(text string) ([]domain.Row, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}

	switch t := v.(type) {
	case []any:
		rows := make([]domain.Row, 0, len(t))
		for i, el := range t {
			obj, ok := el.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("array element %d is not an object", i)
			}
			rows = append(rows, domain.Row(obj))
		}
		return rows, nil
	case map[string]any:
		return []domain.Row{domain.Row(t)}, nil
	default:
		return nil, fmt.Errorf("parsed value is %T, not an object or array", v)
	}
}

// salvageKeyValueLines scans the text line by line for key: value pairs and
// assembles them into a single row.
func salvageKeyValueLines(text string) (domain.Row, bool) {
	row := make(domain.Row)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case "", "{", "}", "[", "]", "```", "```json":
			continue
		}
		m := keyValueLinePattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		key := strings.TrimSpace(m[1])
		val := strings.Trim(strings.TrimSpace(m[2]), `"`)
		if key == "" {
			continue
		}
		row[key] = val
	}
	if len(row) == 0 {
		return nil, false
	}
	return row, true
}
