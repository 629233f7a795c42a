// Package config handles loading and validating MHUB bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MHUB_ prefix)
//   - Validation of required fields and timing constraints
//   - Default value handling
//
// Security Considerations:
//   - MQTT and InfluxDB credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.Host)
package config
