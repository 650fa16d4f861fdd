package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/brctl/internal/carriage"
	"github.com/danmuck/brctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	configPath := flag.String("config", "", "path to a ccpctl TOML config")
	flag.Parse()

	cfg := carriage.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ccpctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc := carriage.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ccpctl: %v\n", err)
		os.Exit(1)
	}
}
