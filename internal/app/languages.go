package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/lens/internal/language"
	"horse.fit/lens/internal/ocr"
)

func runLanguages(args []string) int {
	fs := flag.NewFlagSet("languages", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	fmt.Println("Recognition languages:")
	for _, code := range ocr.SupportedLanguages() {
		fmt.Printf("  %s\n", code)
	}

	fmt.Println()
	fmt.Println("Target languages:")
	for _, option := range language.TargetOptions() {
		fmt.Printf("  %-8s %s\n", option.Code, option.Label)
	}
	return 0
}
