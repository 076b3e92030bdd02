package main

import (
	"flag"
	"fmt"
	"os"

	"aegis-log/core/appbootstrap"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the configuration file")
	flag.Parse()

	if err := appbootstrap.Run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
}
