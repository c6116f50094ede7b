package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/lens/internal/cli"
	"horse.fit/lens/internal/config"
)

func runConfig(args []string) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	check := fs.Bool("check", false, "Print validation warnings and exit")
	provider := fs.String("provider", "", "Set the LLM provider")
	model := fs.String("model", "", "Set the model name")
	endpoint := fs.String("endpoint", "", "Set the API endpoint")
	apiKey := fs.String("api-key", "", "Set the API key")
	template := fs.String("template", "", "Set the active prompt template")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := bootstrap(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	settings, _, err := openStores(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if *template != "" {
		if _, ok := newPromptStore(settings, logger).Get(*template); !ok {
			fmt.Fprintf(os.Stderr, "Unknown prompt template %q\n", *template)
			return 2
		}
		if _, err := settings.Apply("prompt", func(s *config.Settings) {
			s.Prompt.ActiveTemplate = *template
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to update prompt settings: %v\n", err)
			return 1
		}
	}

	if *provider != "" || *model != "" || *endpoint != "" || *apiKey != "" {
		warnings, err := settings.Apply("llm", func(s *config.Settings) {
			if *provider != "" {
				s.LLM.Provider = *provider
				if builtin := config.DefaultEndpoint(*provider); builtin != "" && *endpoint == "" {
					s.LLM.APIEndpoint = builtin
				}
				if builtin := config.DefaultModel(*provider); builtin != "" && *model == "" {
					s.LLM.ModelName = builtin
				}
			}
			if *model != "" {
				s.LLM.ModelName = *model
			}
			if *endpoint != "" {
				s.LLM.APIEndpoint = *endpoint
			}
			if *apiKey != "" {
				s.LLM.APIKey = *apiKey
			}
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to update LLM settings: %v\n", err)
			return 1
		}
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	current := settings.Settings()
	if *check {
		allWarnings := current.Validate()
		if len(allWarnings) == 0 {
			fmt.Println("Settings are valid")
			return 0
		}
		for section, warnings := range allWarnings {
			for _, warning := range warnings {
				fmt.Printf("%s: %s\n", section, warning)
			}
		}
		return 1
	}

	// Never print the key itself.
	if current.LLM.APIKey != "" {
		current.LLM.APIKey = "(set)"
	}
	payload, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode settings: %v\n", err)
		return 1
	}
	fmt.Println(string(payload))
	return 0
}
