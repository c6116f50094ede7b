package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "translate":
		return runTranslate(args[1:])
	case "serve":
		return runServe(args[1:])
	case "history":
		return runHistory(args[1:])
	case "config":
		return runConfig(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "token":
		return runToken(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "lens CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lens <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  translate  Recognize and translate the text in an image file")
	fmt.Fprintln(os.Stderr, "  serve      Start the local control API")
	fmt.Fprintln(os.Stderr, "  history    Browse, search, export or prune translation history")
	fmt.Fprintln(os.Stderr, "  config     Show settings or update one section")
	fmt.Fprintln(os.Stderr, "  validate   Validate a history file against the storage schema")
	fmt.Fprintln(os.Stderr, "  languages  List recognition languages and target options")
	fmt.Fprintln(os.Stderr, "  token      Hash an access token for the control API")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"lens <command> -h\" for command-specific flags.")
}
