package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"horse.fit/lens/internal/cli"
	"horse.fit/lens/internal/config"
	"horse.fit/lens/internal/history"
	"horse.fit/lens/internal/logging"
	"horse.fit/lens/internal/prompt"
)

// bootstrap loads the env file, process config and logger shared by every
// command.
func bootstrap(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// newPromptStore loads the builtin templates plus the user's custom
// templates, and keeps the store in sync with prompt settings changes.
func newPromptStore(settings *config.Store, logger zerolog.Logger) *prompt.Store {
	prompts := prompt.NewStore()
	load := func() {
		for _, problem := range prompts.LoadCustom(settings.Settings().Prompt.CustomTemplates) {
			logger.Warn().Str("template", problem).Msg("skipping invalid custom template")
		}
	}
	load()
	settings.OnChange("prompt", load)
	return prompts
}

// openStores loads the settings tree and history store from the data
// directory.
func openStores(cfg *config.Config, logger zerolog.Logger) (*config.Store, *history.Store, error) {
	settings := config.NewStore(cfg.SettingsPath(), logger)
	if err := settings.Load(); err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	maxRecords := settings.Settings().History.MaxRecords
	records := history.NewStore(cfg.HistoryPath(), maxRecords, logger)
	if err := records.Load(); err != nil {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}
	return settings, records, nil
}
