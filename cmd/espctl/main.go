package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/brctl/internal/actuator"
	"github.com/danmuck/brctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	configPath := flag.String("config", "", "path to an espctl TOML config")
	silent := flag.Bool("silent", false, "never acknowledge carriage records")
	flag.Parse()

	cfg := actuator.DefaultServiceConfig()
	if *configPath != "" {
		loaded, err := loadServiceConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "espctl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *silent {
		cfg.Silent = true
	}

	svc := actuator.NewServiceWithConfig(cfg)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "espctl: %v\n", err)
		os.Exit(1)
	}
}
