// Package config is the application configuration layer for the
// eegdev-acquire demo command: which device to open, which driver
// options to override, and which channel groups to stream to which
// output arrays. It is unrelated to the core's own GetConfMapping
// collaborator, which a device plugin consults directly through
// CoreInterface.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "eegdev-acquire"
	ConfigType    = "yaml"
	DefaultConfig = `# eegdev-acquire configuration

# Driver name ("sawtooth", "whitenoise", "soundcard", or "any")
device: "sawtooth"

# Driver option overrides, passed through to the plugin's Open via
# option passthrough
options:
  samplingrate: "256"

# Channel groups to stream, in the order they should land in the
# output stream
groups:
  - sensor_type: "eeg"
    index: 0
    numch: 8
    data_type: "float32"
  - sensor_type: "trigger"
    index: 0
    numch: 1
    data_type: "int32"

# Destination for streamed samples ("" = stdout)
output_file: ""

debug: false
`
)

// GroupConfig is one requested channel group, resolved into a
// plugin.GrpConf once the device's sensor types are known.
type GroupConfig struct {
	SensorType string `mapstructure:"sensor_type"`
	Index      int    `mapstructure:"index"`
	NumCh      int    `mapstructure:"numch"`
	DataType   string `mapstructure:"data_type"`
}

// Settings holds all application configuration.
type Settings struct {
	Device     string            `mapstructure:"device"`
	Options    map[string]string `mapstructure:"options"`
	Groups     []GroupConfig     `mapstructure:"groups"`
	OutputFile string            `mapstructure:"output_file"`
	Debug      bool              `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/eegdev-acquire/
func Init() error {
	viper.SetDefault("device", "sawtooth")
	viper.SetDefault("options", map[string]string{})
	viper.SetDefault("output_file", "")
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings.
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that the settings describe a usable acquisition.
func (s *Settings) Validate() error {
	var errs []error

	if s.Device == "" {
		errs = append(errs, errors.New("device must not be empty"))
	}
	if len(s.Groups) == 0 {
		errs = append(errs, errors.New("at least one channel group is required"))
	}

	validTypes := map[string]bool{"int32": true, "float32": true, "float64": true}
	for i, g := range s.Groups {
		if g.SensorType == "" {
			errs = append(errs, fmt.Errorf("groups[%d]: sensor_type must not be empty", i))
		}
		if g.NumCh <= 0 {
			errs = append(errs, fmt.Errorf("groups[%d]: numch must be positive, got %d", i, g.NumCh))
		}
		if !validTypes[g.DataType] {
			errs = append(errs, fmt.Errorf("groups[%d]: data_type must be one of int32, float32, float64, got %q", i, g.DataType))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// OptionLookup adapts Options into the confLookup callback eegdev.Open
// expects.
func (s *Settings) OptionLookup() func(name string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := s.Options[name]
		return v, ok
	}
}
