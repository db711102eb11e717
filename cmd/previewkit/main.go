package main

import (
	"os"

	"github.com/storefront-preview/previewkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
