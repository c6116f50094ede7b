package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"horse.fit/lens/internal/cli"
	"horse.fit/lens/internal/config"
	"horse.fit/lens/internal/history"
	"horse.fit/lens/internal/llm"
	"horse.fit/lens/internal/ocr"
	"horse.fit/lens/internal/prompt"
	"horse.fit/lens/internal/workflow"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	imagePath := fs.String("image", "", "Path to the captured image (PNG or JPEG)")
	stream := fs.Bool("stream", false, "Print the translation as it arrives (default from the stream setting)")
	target := fs.String("target", "", "Target language override for this run")
	showOriginal := fs.Bool("show-original", false, "Also print the recognized text")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "--image is required")
		return 2
	}

	cfg, logger, err := bootstrap(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	file, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		return 1
	}
	img, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		return 1
	}

	settings, records, err := openStores(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if *target != "" {
		if _, err := settings.Apply("translation", func(s *config.Settings) {
			s.Translation.TargetLanguage = *target
		}); err != nil {
			logger.Warn().Err(err).Msg("persist target language override")
		}
	}

	engine := ocr.NewEngine(cfg.TesseractDataDir, logger)
	defer engine.Close()

	streaming := resolveStream(fs, *stream, settings.Settings().LLM.Stream)
	runner := buildRunner(settings, records, engine, newPromptStore(settings, logger), streaming, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result := runner.Run(ctx, img, workflow.Region{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()})
	switch result.Type {
	case workflow.ResultSuccess:
		if *showOriginal {
			fmt.Println("--- original ---")
			fmt.Println(result.OriginalText)
			fmt.Println("--- translation ---")
		}
		if streaming {
			// Chunks were already printed as they arrived.
			fmt.Println()
		} else {
			fmt.Println(result.TranslatedText)
		}
		return 0
	case workflow.ResultEmpty:
		fmt.Fprintln(os.Stderr, "No text recognized in the image")
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Translation failed (%s): %s\n", result.Stage, result.Message)
		return 1
	}
}

// resolveStream picks streaming output: the -stream flag when given on the
// command line, otherwise the stream setting.
func resolveStream(fs *flag.FlagSet, flagValue, settingValue bool) bool {
	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "stream" {
			explicit = true
		}
	})
	if explicit {
		return flagValue
	}
	return settingValue
}

// buildRunner wires the pipeline. When the history section is disabled the
// runner skips recording entirely.
func buildRunner(settings *config.Store, records *history.Store, engine *ocr.Engine, prompts *prompt.Store, stream bool, logger zerolog.Logger) *workflow.Runner {
	settings.OnChange("ocr", engine.Invalidate)

	var writer workflow.HistoryWriter
	if settings.Settings().History.Enabled {
		writer = records
	}

	factory := func(cfg llm.Config) workflow.Completer {
		client := llm.NewClient(cfg, cfg.RetryPolicy(), logger)
		if stream {
			return &streamingCompleter{client: client}
		}
		return client
	}
	return workflow.NewRunner(settings, engineRecognizer{engine}, writer, prompts, factory, nil, logger)
}

// engineRecognizer adapts the OCR engine to the workflow interface.
type engineRecognizer struct {
	engine *ocr.Engine
}

func (r engineRecognizer) Recognize(img image.Image, settings config.OCRSettings) (string, error) {
	return r.engine.Recognize(img, settings)
}

// streamingCompleter prints each delta to stdout while the completion is
// assembled.
type streamingCompleter struct {
	client *llm.Client
}

func (s *streamingCompleter) Complete(ctx context.Context, promptText string) (*llm.Completion, error) {
	return s.client.CompleteStream(ctx, promptText, func(chunk string) {
		fmt.Print(chunk)
	})
}

func (s *streamingCompleter) Close() {
	s.client.Close()
}
