// Package main is the entry point for the plancheck CLI.
package main

import (
	"github.com/joho/godotenv"

	"github.com/blackwell-systems/plancheck/internal/app"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0"
var version = "dev"

func main() {
	// PLANCHECK_* overrides may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	app.SetVersion(version)
	app.Execute()
}
