package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted mid-command; exit with the conventional code
			// and nothing on stderr.
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "airtrack:", err)
		os.Exit(1)
	}
}
