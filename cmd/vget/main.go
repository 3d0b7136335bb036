package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vget/internal/cancel"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, cancel.ErrCanceled) {
			fmt.Fprintln(os.Stderr, "Canceled.")
			os.Exit(130)
		}
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
