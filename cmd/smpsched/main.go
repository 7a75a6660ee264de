// Command smpsched runs and checks scheduler scenario files.
package main

import (
	"github.com/joho/godotenv"
	"github.com/tebeka/atexit"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
