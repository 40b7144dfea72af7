package main

import (
	"log"

	"roomlobby/internal/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := server.Run(); err != nil {
		log.Fatalf("[Server] %v", err)
	}
}
