// Package main is the entry point for the nuvioplay application.
package main

import (
	"github.com/samber/lo"

	"github.com/nuvio-play/nuvioplay/cmd"
	"github.com/nuvio-play/nuvioplay/config"
	"github.com/nuvio-play/nuvioplay/internal/cuecache"
	"github.com/nuvio-play/nuvioplay/internal/syncqueue"
	"github.com/nuvio-play/nuvioplay/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	// Initialize asynchronous background processes for cache maintenance and synchronization.
	go cuecache.CollectGarbage()
	go syncqueue.ReconcileFailures()

	cmd.Execute()
}
