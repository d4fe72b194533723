// cmd/chemsift/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chemsift/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
