// Package translator coordinates header translation and chunked body
// translation into one reconciled output matching the original row order.
package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sheet-translator/internal/config"
	"sheet-translator/internal/domain"
	"sheet-translator/internal/llm"
	"sheet-translator/internal/parser"
	"sheet-translator/internal/prompt"
	"sheet-translator/internal/repair"
)

// Options tune a translation job.
type Options struct {
	// ChunkSize bounds rows per model request; values below 1 fall back
	// to a conservative default.
	ChunkSize int
	// Passthrough classifies rows copied through untranslated. Nil means
	// every row is translated.
	Passthrough domain.PassthroughPredicate
}

// Result is the reconciled output of one job.
type Result struct {
	Rows    []domain.Row
	Headers []string
}

// Orchestrator drives one translation job at a time. Model requests are
// issued strictly sequentially: one header call, then one call per chunk.
type Orchestrator struct {
	gen         llm.Generator
	parser      *parser.Parser
	prompts     config.PromptTable
	chunkSize   int
	passthrough domain.PassthroughPredicate
	logger      *zap.Logger
}

func New(gen llm.Generator, p *parser.Parser, prompts config.PromptTable, opts Options, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		gen:         gen,
		parser:      p,
		prompts:     prompts,
		chunkSize:   opts.ChunkSize,
		passthrough: opts.Passthrough,
		logger:      logger,
	}
	if o.chunkSize < 1 {
		o.chunkSize = 3
	}
	if o.passthrough == nil {
		o.passthrough = domain.PassthroughNone
	}
	return o
}

// Translate runs the whole job: headers, then body chunks, then
// reconciliation into the original row order under translated column names.
// The job is all-or-nothing: any unrecovered parse or API failure aborts it
// with no partial output.
func (o *Orchestrator) Translate(ctx context.Context, rows []domain.Row, headers []string, targetLanguage string, onProgress domain.ProgressFunc) (*Result, error) {
	if onProgress == nil {
		onProgress = func(domain.Progress) {}
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("header list is empty")
	}

	onProgress(domain.Progress{
		Phase:      domain.PhaseTranslatingHeaders,
		Current:    0,
		Total:      1,
		Message:    "translating column headers",
		InProgress: true,
	})

	translatedHeaders, err := o.translateHeaders(ctx, headers, targetLanguage)
	if err != nil {
		return nil, err
	}

	toTranslate := make([]domain.Row, 0, len(rows))
	for _, row := range rows {
		if !o.passthrough(row) {
			toTranslate = append(toTranslate, row)
		}
	}

	chunks := chunkRows(toTranslate, o.chunkSize)
	o.logger.Info("starting body translation",
		zap.Int("rows", len(rows)),
		zap.Int("to_translate", len(toTranslate)),
		zap.Int("passthrough", len(rows)-len(toTranslate)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", o.chunkSize),
		zap.String("language", targetLanguage),
	)

	translated := make([]domain.Row, 0, len(toTranslate))
	for i, chunk := range chunks {
		onProgress(domain.Progress{
			Phase:      domain.PhaseTranslatingRows,
			Current:    i + 1,
			Total:      len(chunks),
			Message:    fmt.Sprintf("translating rows (chunk %d/%d)", i+1, len(chunks)),
			InProgress: true,
		})

		out, err := o.translateChunk(ctx, chunk, targetLanguage)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if len(out) != len(chunk) {
			return nil, &ResultCountMismatchError{Chunk: i + 1, Expected: len(chunk), Got: len(out)}
		}
		translated = append(translated, out...)
	}

	onProgress(domain.Progress{
		Phase:      domain.PhaseFinalizing,
		Current:    len(chunks),
		Total:      len(chunks),
		Message:    "reassembling rows",
		InProgress: true,
	})

	output := reconcile(rows, translated, headers, translatedHeaders, o.passthrough)

	onProgress(domain.Progress{
		Phase:      domain.PhaseDone,
		Current:    len(chunks),
		Total:      len(chunks),
		Message:    "translation complete",
		InProgress: false,
	})

	return &Result{Rows: output, Headers: translatedHeaders}, nil
}

// translateHeaders sends the header list as a single comma-joined request
// and splits the response. A count mismatch is fatal.
func (o *Orchestrator) translateHeaders(ctx context.Context, headers []string, targetLanguage string) ([]string, error) {
	userPrompt := prompt.BuildHeaderPrompt(prompt.HeaderVars{
		Headers:        headers,
		TargetLanguage: targetLanguage,
	})

	text, err := o.gen.Generate(ctx, prompt.HeaderSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("translating headers: %w", err)
	}

	cleaned := strings.TrimSpace(repair.StripCodeFences(text))
	parts := strings.Split(cleaned, ",")
	translated := make([]string, 0, len(parts))
	for _, p := range parts {
		translated = append(translated, strings.TrimSpace(p))
	}
	// A trailing separator is a common model artifact; an empty final token
	// is dropped before the count check.
	if n := len(translated); n > 0 && translated[n-1] == "" {
		translated = translated[:n-1]
	}

	if len(translated) != len(headers) {
		return nil, &HeaderMismatchError{Expected: len(headers), Got: len(translated), Raw: text}
	}
	return translated, nil
}

func (o *Orchestrator) translateChunk(ctx context.Context, chunk []domain.Row, targetLanguage string) ([]domain.Row, error) {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return nil, fmt.Errorf("encoding chunk: %w", err)
	}

	systemPrompt := prompt.SystemInstruction(targetLanguage, o.prompts.For(targetLanguage))
	userPrompt := prompt.BuildChunkPrompt(prompt.ChunkVars{
		ChunkJSON:      string(payload),
		RowCount:       len(chunk),
		TargetLanguage: targetLanguage,
	})

	text, err := o.gen.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	return o.parser.Parse(text)
}

// reconcile walks the original rows in order, pulling translated rows from
// the accumulated results for non-passthrough rows, and remaps every value
// from its original column name to the translated name at the same index.
func reconcile(rows, translated []domain.Row, headers, translatedHeaders []string, passthrough domain.PassthroughPredicate) []domain.Row {
	output := make([]domain.Row, 0, len(rows))
	next := 0
	for _, row := range rows {
		source := row
		if !passthrough(row) {
			source = translated[next]
			next++
		}
		out := make(domain.Row, len(headers))
		for i, h := range headers {
			if v, ok := source[h]; ok {
				out[translatedHeaders[i]] = v
			}
		}
		output = append(output, out)
	}
	return output
}

func chunkRows(rows []domain.Row, size int) [][]domain.Row {
	if len(rows) == 0 {
		return nil
	}
	chunks := make([][]domain.Row, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
