// Command anonimizar replaces DNI numbers, mobile phone numbers and email
// addresses in free text and saves the result as a JSON document.
//
// Usage:
//
//	anonimizar text "Mi DNI es 12345678Z"        # writes ./datos.json
//	echo "llama al 612345678" | anonimizar text --stdout
//	anonimizar batch --input textos.csv --output anonimizados.jsonl
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raaihank/anonimizador/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
