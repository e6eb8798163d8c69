package main

import (
	"fmt"
	"os"

	"github.com/ayo6706/wheelbet/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "wheelbet: %v\n", err)
		os.Exit(1)
	}
}
