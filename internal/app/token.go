package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/lens/internal/auth"
)

func runToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	token := fs.String("hash", "", "Access token to hash for LENS_ACCESS_TOKEN_HASH")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "--hash is required")
		return 2
	}

	hash, err := auth.HashToken(*token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash token: %v\n", err)
		return 1
	}
	fmt.Println(hash)
	return 0
}
