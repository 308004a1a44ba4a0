// Package main provides the catai command line.
//
// Chat with the assistant in a terminal:
//
//	catai chat
//	catai chat --watch-port 8091
//
// Run the gateway server used by the gateway backend:
//
//	catai serve
//
// Register an assistant that knows about getCatImage:
//
//	catai assistant create --name "Cat Bot"
//
// Configuration comes from environment variables (CATAI_BACKEND, OPENAI_API_KEY,
// CAT_API_KEY, ...) and an optional YAML file passed with --config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
