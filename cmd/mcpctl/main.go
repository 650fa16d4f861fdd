package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/brctl/internal/controller"
	"github.com/danmuck/brctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	configPath := flag.String("config", "", "path to a mcpctl TOML config")
	flag.Parse()

	cfg := controller.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mcpctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	svc := controller.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcpctl: %v\n", err)
		os.Exit(1)
	}
}
