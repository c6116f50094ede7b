package main

import (
	"os"

	"horse.fit/lens/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
