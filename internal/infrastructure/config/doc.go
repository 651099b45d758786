// Package config handles loading and validating the driver service
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a .env file into the environment
//   - Overriding with HASSDRIVER_* environment variables
//   - Validation of every section, reported together
//
// Security Considerations:
//   - The Home Assistant access token, MQTT password, InfluxDB token and JWT
//     secret should arrive through environment variables or .env
//   - Config.String redacts all of them
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Driver.Device)
package config
