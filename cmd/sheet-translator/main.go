// Package main provides the CLI entry point for sheet-translator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sheet-translator/internal/config"
	"sheet-translator/internal/domain"
	"sheet-translator/internal/llm"
	"sheet-translator/internal/parser"
	"sheet-translator/internal/translator"
	"sheet-translator/internal/util"
	"sheet-translator/internal/xlsx"
)

var (
	outputPath     string
	targetLanguage string
	chunkSize      int
	promptsFile    string
	passthroughCol string
	passthroughVal string
	backend        string
	lineSalvage    bool
	initPrompts    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheet-translator [input.xlsx]",
		Short: "Translate spreadsheet content with a generative model",
		Long: `sheet-translator reads the first sheet of an Excel file, translates the
column headers and row values into the target language through a generative
model, and writes a spreadsheet with identical shape and translated content.`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: <input>_translated.xlsx)")
	rootCmd.Flags().StringVarP(&targetLanguage, "lang", "l", "Hindi", "Target language name")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Rows per model request (default from CHUNK_SIZE env)")
	rootCmd.Flags().StringVar(&promptsFile, "prompts", "", "YAML file with per-language instruction templates")
	rootCmd.Flags().StringVar(&passthroughCol, "passthrough-column", "", "Column name for the passthrough predicate")
	rootCmd.Flags().StringVar(&passthroughVal, "passthrough-value", "", "Column value marking rows to copy through untranslated")
	rootCmd.Flags().StringVar(&backend, "backend", "", "Gemini transport: rest or sdk (default from GEMINI_BACKEND env)")
	rootCmd.Flags().BoolVar(&lineSalvage, "line-salvage", false, "Enable last-resort line-oriented response recovery (low fidelity)")
	rootCmd.Flags().BoolVar(&initPrompts, "init-prompts", false, "Write the default prompt templates to the --prompts path and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if initPrompts {
		if promptsFile == "" {
			return fmt.Errorf("--init-prompts requires --prompts")
		}
		return config.CreateDefaultPromptsFile(promptsFile)
	}

	inputPath := args[0]
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompts := config.DefaultPrompts()
	if cfg.Translation.PromptsFile != "" {
		prompts, err = config.LoadPrompts(cfg.Translation.PromptsFile)
		if err != nil {
			return err
		}
	}

	gen, err := buildGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var parserOpts []parser.Option
	if lineSalvage {
		parserOpts = append(parserOpts, parser.WithLineSalvage())
	}

	orch := translator.New(gen, parser.New(logger, parserOpts...), prompts, translator.Options{
		ChunkSize:   cfg.Translation.ChunkSize,
		Passthrough: domain.PassthroughColumnEquals(cfg.Translation.PassthroughColumn, cfg.Translation.PassthroughValue),
	}, logger)

	rows, headers, err := xlsx.ReadTable(inputPath)
	if err != nil {
		return err
	}
	logger.Info("loaded spreadsheet",
		zap.String("file", inputPath),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(headers)),
	)

	result, err := orch.Translate(ctx, rows, headers, targetLanguage, func(p domain.Progress) {
		logger.Info("progress",
			zap.String("phase", string(p.Phase)),
			zap.Int("current", p.Current),
			zap.Int("total", p.Total),
			zap.String("message", p.Message),
		)
	})
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}

	out := outputPath
	if out == "" {
		out = defaultOutputPath(inputPath)
	}
	if err := xlsx.WriteTable(out, result.Rows, result.Headers); err != nil {
		return err
	}

	logger.Info("translation completed",
		zap.Int("rows", len(result.Rows)),
		zap.String("output", out),
	)
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if chunkSize > 0 {
		cfg.Translation.ChunkSize = chunkSize
	}
	if promptsFile != "" {
		cfg.Translation.PromptsFile = promptsFile
	}
	if passthroughCol != "" {
		cfg.Translation.PassthroughColumn = passthroughCol
		cfg.Translation.PassthroughValue = passthroughVal
	}
	if backend != "" {
		cfg.Gemini.Backend = backend
	}
}

func buildGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.Generator, error) {
	var primary llm.Generator
	switch cfg.Gemini.Backend {
	case "sdk":
		sdk, err := llm.NewSDKClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if err != nil {
			return nil, err
		}
		primary = sdk
	case "rest", "":
		primary = llm.NewGeminiClient(llm.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Gemini.Backend)
	}

	if cfg.OpenAI.EnableFallback {
		fallback := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
		if fallback != nil {
			logger.Info("OpenAI fallback enabled", zap.String("model", cfg.OpenAI.Model))
			return llm.NewFallbackGenerator(primary, fallback, logger), nil
		}
	}
	return primary, nil
}

func defaultOutputPath(input string) string {
	ext := ".xlsx"
	base := strings.TrimSuffix(input, ext)
	if base == input {
		return input + "_translated" + ext
	}
	return base + "_translated" + ext
}
