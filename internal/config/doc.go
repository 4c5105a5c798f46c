// Package config loads the template worker settings from the environment.
//
// Every variable has a development default; Load fails with all invalid settings listed.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("configuration loaded", zap.String("config", cfg.String()))
package config
