package main

import (
	"fmt"

	"github.com/felixgeelhaar/outreach/internal/config"
)

// cmdConfig shows the effective configuration
func cmdConfig() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Outreach Configuration")

	fmt.Println("\nAPI:")
	fmt.Printf("  base_url: %s\n", cfg.API.BaseURL)
	fmt.Printf("  timeout: %ds\n", cfg.API.TimeoutSeconds)
	fmt.Printf("  retry: %t\n", cfg.API.Retry)
	fmt.Printf("  circuit_breaker: %t\n", cfg.API.CircuitBreaker)
	fmt.Printf("  max_concurrent_uploads: %d\n", cfg.API.MaxConcurrentUploads)
	fmt.Printf("  upload_timeout: %ds\n", cfg.API.UploadTimeoutSeconds)

	outreachDir, _ := config.OutreachDir()

	fmt.Println("\nStorage:")
	fmt.Printf("  backend: %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend != config.BackendMemory {
		fmt.Printf("  path: %s\n", cfg.Storage.Dir(outreachDir))
	}

	fmt.Println("\nConsole:")
	fmt.Printf("  bind: %s\n", cfg.Console.Addr())
	fmt.Printf("  log_level: %s\n", cfg.Console.LogLevel)
	fmt.Printf("  login_rate_per_minute: %d\n", cfg.Console.LoginRatePerMinute)

	fmt.Printf("\nConfig path: %s/config.yaml\n", outreachDir)
	if config.Debug() {
		fmt.Println("Debug logging: on (" + config.EnvDebug + ")")
	}
	return nil
}
