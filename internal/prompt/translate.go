// Package prompt builds the prompts sent to the model.
package prompt

import (
	"fmt"
	"strings"
)

// HeaderSystemPrompt is the minimal system instruction for the header
// translation request. Headers are short labels; the heavyweight
// per-language instruction template is not needed here.
const HeaderSystemPrompt = `You are a professional translator. You translate short lists of spreadsheet column headers. Respond with the translated list only: comma-separated, same order, same number of items, no explanations, no markdown.`

// defaultSystemTemplate is used when the prompt table has no template for
// the target language.
const defaultSystemTemplate = `You are a professional translator. Translate the given content into %s accurately, preserving meaning, tone and formatting. Respond with the requested output only.`

// languagePlaceholder is substituted in user-supplied templates.
const languagePlaceholder = "{language}"

// HeaderVars holds variables for the header translation prompt.
type HeaderVars struct {
	Headers        []string
	TargetLanguage string
}

// BuildHeaderPrompt builds the user prompt translating the column header
// list as a single comma-joined request.
func BuildHeaderPrompt(vars HeaderVars) string {
	return fmt.Sprintf(`Translate the following comma-separated list of spreadsheet column headers into %s.
Return ONLY the translated headers, comma-separated, in the same order. The output must contain exactly %d items.

%s`,
		vars.TargetLanguage,
		len(vars.Headers),
		strings.Join(vars.Headers, ", "),
	)
}

// ChunkVars holds variables for the row chunk translation prompt.
type ChunkVars struct {
	ChunkJSON      string
	RowCount       int
	TargetLanguage string
}

// BuildChunkPrompt builds the user prompt for one chunk of rows. The chunk
// is embedded as a JSON array; the model must keep every key unchanged and
// translate only the values.
func BuildChunkPrompt(vars ChunkVars) string {
	return fmt.Sprintf(`Translate the values in the following JSON array of records into %s.

Rules:
- Keep every JSON key EXACTLY as it is. Do not translate, rename, add or drop keys.
- Translate only the values. Keep numbers and identifiers unchanged.
- Return ONLY a valid JSON array of exactly %d objects, in the same order.
- Do not wrap the output in markdown code fences. Do not add any text before or after the JSON.

%s`,
		vars.TargetLanguage,
		vars.RowCount,
		vars.ChunkJSON,
	)
}

// SystemInstruction resolves the system prompt for body translation: the
// per-language template when one is configured, otherwise a generic
// instruction naming the target language.
func SystemInstruction(targetLanguage, template string) string {
	if template != "" {
		return strings.ReplaceAll(template, languagePlaceholder, targetLanguage)
	}
	return fmt.Sprintf(defaultSystemTemplate, targetLanguage)
}
