package main

import (
	"flag"
	"log"

	"github.com/deliveryrouting/courier-backend/cmd"
)

// Overridden at build time with -ldflags "-X main.apiVersion=..."
var apiVersion = "dev"

func main() {
	shouldRunServer := flag.Bool("server", false, "Run server")
	flag.Parse()

	compiledConfig := cmd.CompiledConfig{
		Version: apiVersion,
	}

	if *shouldRunServer {
		if err := cmd.RunServer(compiledConfig); err != nil {
			log.Fatal(err)
		}
	}
}
