package main

import (
	"context"
	"log"

	"syncgate/internal/app/bootstrap"
)

// Sync process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (replicas + acl + use cases).
// 3) Run one replication pass per tracked model.
func main() {
	log.Println("syncgate sync starting")
	app, err := bootstrap.BuildSync()
	if err != nil {
		log.Fatalf("bootstrap sync failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("sync shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("syncgate sync stopped with error: %v", err)
	}
}
