// Package repair normalizes malformed JSON text returned by generative
// models. Every transform is best-effort: it never fails, it only rewrites
// text, and applying a transform to already-valid JSON leaves it valid.
package repair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Fenced payload, e.g. ```json\n[...]\n``` (compiled once at package init)
var codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// Bare numeral written in a non-Latin digit script used as an object value.
// Covers Arabic-Indic, Extended Arabic-Indic, Devanagari and Bengali digits.
var bareNumeralPattern = regexp.MustCompile(`(:\s*)([\x{0660}-\x{0669}\x{06F0}-\x{06F9}\x{0966}-\x{096F}\x{09E6}-\x{09EF}]+(?:\.[\x{0660}-\x{0669}\x{06F0}-\x{06F9}\x{0966}-\x{096F}\x{09E6}-\x{09EF}]+)?)(\s*[,}\]])`)

// Backslash followed by a character that is not a legal JSON escape.
var invalidEscapePattern = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// Unquoted object key, e.g. {Question: "..."}.
var unquotedKeyPattern = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)

// Unquoted scalar value after a quoted key, e.g. "Marks": ten.
var unquotedValuePattern = regexp.MustCompile(`("\s*:\s*)([^\s"\d\-{}\[\],][^,}\]"]*)`)

// Trailing comma before a closing bracket.
var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

// Doubled quotes hugging text, e.g. ""hello"". Empty strings ("" followed by
// a separator) are left alone.
var doubledQuoteBeforePattern = regexp.MustCompile(`([^\s:,{\[])""`)
var doubledQuoteAfterPattern = regexp.MustCompile(`""([^\s,}\]:])`)

// StripCodeFences removes leading/trailing markdown code-fence markers.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if m := codeFencePattern.FindStringSubmatch(t); m != nil {
		return m[1]
	}
	if strings.HasPrefix(t, "```json") {
		t = strings.TrimSpace(strings.TrimPrefix(t, "```json"))
	} else if strings.HasPrefix(t, "```") {
		t = strings.TrimSpace(strings.TrimPrefix(t, "```"))
	}
	if strings.HasSuffix(t, "```") {
		t = strings.TrimSpace(strings.TrimSuffix(t, "```"))
	}
	return t
}

// StripLeadingBackslashes drops a run of backslashes at the very start of the
// text. Some responses arrive with the whole payload escaped once more, which
// leaves a stray backslash before the opening quote.
func StripLeadingBackslashes(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), "\\")
}

// UnwrapQuoted undoes double-stringification: when the entire payload is a
// single JSON string literal, it is parsed once and the inner text returned.
// When the literal itself is broken (unescaped inner quotes) but clearly
// wraps an array or object, the outer quotes are stripped and the common
// escapes undone. Anything else passes through untouched.
func UnwrapQuoted(s string) string {
	t := strings.TrimSpace(s)
	if len(t) < 2 || !strings.HasPrefix(t, `"`) || !strings.HasSuffix(t, `"`) {
		return s
	}

	var inner string
	if err := json.Unmarshal([]byte(t), &inner); err == nil && inner != "" {
		return inner
	}

	body := t[1 : len(t)-1]
	if strings.HasPrefix(body, "[") || strings.HasPrefix(body, "{") {
		body = strings.ReplaceAll(body, `\"`, `"`)
		body = strings.ReplaceAll(body, `\\`, `\`)
		return body
	}
	return s
}

// TrimToJSONStart discards any preamble before the first '[' or '{'.
func TrimToJSONStart(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "[") || strings.HasPrefix(t, "{") {
		return t
	}
	idx := strings.IndexAny(t, "[{")
	if idx < 0 {
		return t
	}
	return t[idx:]
}

// RemoveExportArtifacts deletes the literal _x000d_ carriage-return artifact
// that spreadsheet exports leave inside cell text.
func RemoveExportArtifacts(s string) string {
	return strings.ReplaceAll(s, "_x000d_", "")
}

// QuoteBareNumerals quotes digit sequences written in a non-Latin numeral
// script that appear as a raw object value, e.g. {"Marks": १०} -> {"Marks": "१०"}.
// Such values are invalid JSON because only ASCII digits form number tokens.
func QuoteBareNumerals(s string) string {
	return bareNumeralPattern.ReplaceAllString(s, `$1"$2"$3`)
}

// EscapeControlChars escapes literal newline, carriage-return and tab
// characters that occur inside string literals. Control characters between
// tokens are untouched.
func EscapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		if escaped {
			escaped = false
			b.WriteRune(r)
			continue
		}
		switch r {
		case '\\':
			escaped = true
			b.WriteRune(r)
		case '"':
			inString = false
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BalanceStrings closes unterminated string literals. The text is scanned
// tracking in-string state (respecting backslash escapes); a '}' or ']'
// reached while still inside a string gets a closing quote injected before
// it, and a scan that ends inside a string gets one appended.
func BalanceStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	inString := false
	escaped := false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		if escaped {
			escaped = false
			b.WriteRune(r)
			continue
		}
		switch r {
		case '\\':
			escaped = true
			b.WriteRune(r)
		case '"':
			inString = false
			b.WriteRune(r)
		case '}', ']':
			b.WriteRune('"')
			inString = false
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	if inString {
		b.WriteRune('"')
	}
	return b.String()
}

// AggressiveRepair is the last-resort rewrite: it normalizes invalid escape
// sequences, quotes unquoted object keys and scalar values, strips trailing
// commas and collapses accidental doubled quotes.
func AggressiveRepair(s string) string {
	t := invalidEscapePattern.ReplaceAllString(s, "$1")
	t = unquotedKeyPattern.ReplaceAllString(t, `$1"$2"$3`)
	t = unquotedValuePattern.ReplaceAllStringFunc(t, quoteBareValue)
	t = trailingCommaPattern.ReplaceAllString(t, "$1")
	t = doubledQuoteBeforePattern.ReplaceAllString(t, `$1"`)
	t = doubledQuoteAfterPattern.ReplaceAllString(t, `"$1`)
	return t
}

func quoteBareValue(match string) string {
	sub := unquotedValuePattern.FindStringSubmatch(match)
	if sub == nil {
		return match
	}
	val := strings.TrimSpace(sub[2])
	switch val {
	case "true", "false", "null":
		return match
	}
	return sub[1] + `"` + val + `"`
}

// Preprocess applies the standard transform sequence: fences, leading
// backslashes, double-stringification, preamble, export artifacts, bare
// numerals and raw control characters, in that order.
func Preprocess(s string) string {
	t := StripCodeFences(s)
	t = StripLeadingBackslashes(t)
	t = UnwrapQuoted(t)
	t = TrimToJSONStart(t)
	t = RemoveExportArtifacts(t)
	t = QuoteBareNumerals(t)
	return EscapeControlChars(t)
}
