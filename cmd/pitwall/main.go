package main

import (
	"log"

	"github.com/MrSnakeDoc/pitwall/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("❌ pitwall: %v", err)
	}
}
