package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"horse.fit/lens/internal/cli"
)

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	search := fs.String("search", "", "Substring filter across texts and languages")
	limit := fs.Int("limit", 20, "Maximum records to print (0 for all)")
	remove := fs.String("remove", "", "Delete one record by ID")
	clear := fs.Bool("clear", false, "Delete all records")
	stats := fs.Bool("stats", false, "Print aggregate statistics")
	export := fs.String("export", "", "Export all records to a JSON file")
	asJSON := fs.Bool("json", false, "Print records as JSON")

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
	_, records, err := openStores(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	switch {
	case *clear:
		if err := records.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to clear history: %v\n", err)
			return 1
		}
		fmt.Println("History cleared")
		return 0

	case *remove != "":
		if err := records.Remove(*remove); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to remove record: %v\n", err)
			return 1
		}
		fmt.Printf("Removed record %s\n", *remove)
		return 0

	case *stats:
		payload, err := json.MarshalIndent(records.Statistics(), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode stats: %v\n", err)
			return 1
		}
		fmt.Println(string(payload))
		return 0

	case *export != "":
		if err := records.ExportJSON(*export); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			return 1
		}
		fmt.Printf("Exported history to %s\n", *export)
		return 0
	}

	items := records.Records(*limit, *search)
	if *asJSON {
		payload, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode records: %v\n", err)
			return 1
		}
		fmt.Println(string(payload))
		return 0
	}

	if len(items) == 0 {
		fmt.Println("No matching records")
		return 0
	}
	for _, record := range items {
		fmt.Printf("%s  [%s → %s]  %s\n", record.ID, record.SourceLanguage, record.TargetLanguage, record.Timestamp)
		fmt.Printf("  %s\n", record.OriginalText)
		fmt.Printf("  %s\n", record.TranslatedText)
	}
	return 0
}
