// Command download fetches the interpreter modules declared by a manifest.
//
//	go run ./internal/tools/download [manifest]
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/bootstrap"
	"github.com/caffeineduck/pagekit/internal/fetch"
)

func main() {
	if len(os.Args) > 2 {
		fmt.Fprintln(os.Stderr, "usage: download [manifest]")
		os.Exit(1)
	}

	m := bootstrap.DefaultManifest()
	if len(os.Args) == 2 {
		var err error
		if m, err = bootstrap.LoadManifest(os.Args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := fetch.All(context.Background(), nil, logger, m); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
