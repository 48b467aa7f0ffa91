package commons

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"bucheron/internal/config"
)

// LoadConfig reads an optional YAML file whose keys mirror the environment variable
// names (SERVER_PORT, DB_HOST, ...) and then applies environment overrides.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			viper.SetConfigFile(path)
			viper.SetConfigType("yaml")
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}
