package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kyleking/xu-rsd-gen/cmd"
	"github.com/kyleking/xu-rsd-gen/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		for _, suggestion := range errors.GetSuggestions(err) {
			fmt.Fprintf(os.Stderr, "  hint: %s\n", suggestion)
		}

		stop()
		os.Exit(1)
	}
}
