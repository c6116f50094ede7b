package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/lens/internal/cli"
	"horse.fit/lens/internal/history"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	path := fs.String("file", "", "History file to validate (default: the configured one)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	target := *path
	if target == "" {
		cfg, _, err := bootstrap(envLoader)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		target = cfg.HistoryPath()
	}

	if err := history.ValidateFile(target); err != nil {
		fmt.Fprintf(os.Stderr, "INVALID %s: %v\n", target, err)
		return 1
	}
	fmt.Printf("OK %s\n", target)
	return 0
}
