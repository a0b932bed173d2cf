package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/atvirokodosprendimai/mongoschema/internal/core/domain"
)

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the schema error taxonomy onto distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSpec):
		return 2
	case errors.Is(err, domain.ErrEngineUnavailable):
		return 3
	case errors.Is(err, domain.ErrEngineRejected):
		return 4
	default:
		return 1
	}
}
