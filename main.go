package main

import (
	"log"

	"gitstatuswatch/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("git-status-watch: %v", err)
	}
}
