// Command qa4sm-meta inspects the metadata of qa4sm validation results
// stored as JSON dumps: the compared datasets, the decoded metric variables
// and the metrics they aggregate into.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
