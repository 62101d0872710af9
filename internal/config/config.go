package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for parley.
type Config struct {
	Client ClientConfig `mapstructure:"client" yaml:"client"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// ClientConfig configures the session controller and CLI.
type ClientConfig struct {
	Endpoint   string `mapstructure:"endpoint" yaml:"endpoint"`
	AuthFile   string `mapstructure:"auth_file" yaml:"auth_file"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	DeviceName string `mapstructure:"device_name" yaml:"device_name,omitempty"`
	// CAFiles are extra PEM roots trusted when dialing the endpoint.
	CAFiles []string `mapstructure:"ca_files" yaml:"ca_files,omitempty"`
}

// ServerConfig configures the development chat API server.
type ServerConfig struct {
	Listen    string    `mapstructure:"listen" yaml:"listen"`
	BasePath  string    `mapstructure:"base" yaml:"base"`
	DataDir   string    `mapstructure:"data_dir" yaml:"data_dir"`
	UsersFile string    `mapstructure:"users_file" yaml:"users_file"`
	TLS       TLSConfig `mapstructure:"tls" yaml:"tls"`
}

// TLSConfig configures TLS behavior for the dev server.
type TLSConfig struct {
	Mode     string   `mapstructure:"mode" yaml:"mode"`
	Bundle   []string `mapstructure:"bundle" yaml:"bundle,omitempty"`
	Hostname string   `mapstructure:"hostname" yaml:"hostname,omitempty"`
	CacheDir string   `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// Loader wraps Viper configuration loading for parley.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader initializes a Loader with standard defaults.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("PARLEY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/parley")
	v.AddConfigPath("$HOME/.parley")

	return &Loader{v: v}
}

// Viper exposes the underlying Viper instance for flag binding and defaults.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = strings.TrimSpace(path)
}

// ReadInConfig reads configuration from file if available.
func (l *Loader) ReadInConfig() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads configuration and unmarshals it into a Config struct.
func (l *Loader) Load() (Config, error) {
	if err := l.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
