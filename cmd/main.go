package main

import (
	"log"

	"dealhunter/app"
)

func main() {
	// =========
	// App
	// =========
	application, err := app.New()
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	// =========
	// Run until SIGINT/SIGTERM
	// =========
	application.Run()
}
