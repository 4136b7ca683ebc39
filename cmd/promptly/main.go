// Command promptly runs the prompt diary server and terminal client.
//
// Usage:
//
//	promptly serve
//	promptly add --tag go "How do I cancel a goroutine?"
//	promptly library --search recursion --tag go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/promptly/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
