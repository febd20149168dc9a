package main

import (
	"fmt"
	"log"

	"github.com/levinOo/go-logstats-project/internal/config"
	"github.com/levinOo/go-logstats-project/internal/logger"
	"github.com/levinOo/go-logstats-project/internal/service"
)

var (
	buildVersion string = "N/A"
	buildDate    string = "N/A"
	buildCommit  string = "N/A"
)

func main() {
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}

	sugar, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer sugar.Sync()

	return service.Serve(cfg, sugar)
}
