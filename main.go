package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gi8lino/lptriage/internal/app"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := app.Run(context.Background(), Version, os.Args[1:], os.Stdin, os.Stdout, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err) // nolint:errcheck
		os.Exit(1)
	}
}
