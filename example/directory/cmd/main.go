package main

import (
	"log"
	"time"

	"entitymap/example/directory"
)

func main() {
	// Set up logging
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("Starting Directory Example")

	// Run the example
	directory.Example()

	// Wait a bit to ensure all logs are printed
	time.Sleep(time.Second)
	log.Println("Example completed")
}
