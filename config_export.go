package parley

import "pkt.systems/parley/internal/config"

// Config mirrors the parley configuration.
type Config = config.Config

// ClientConfig configures the session controller and CLI.
type ClientConfig = config.ClientConfig

// ServerConfig configures the development chat server.
type ServerConfig = config.ServerConfig

// TLSConfig configures TLS for the development chat server.
type TLSConfig = config.TLSConfig

// Loader wraps configuration loading via Viper.
type Loader = config.Loader

const (
	// DefaultConfigDirName is the directory name under the home directory.
	DefaultConfigDirName = config.DefaultConfigDirName
	// DefaultConfigFileName is the default config file name.
	DefaultConfigFileName = config.DefaultConfigFileName
	// DefaultAuthFileName is the default auth file name.
	DefaultAuthFileName = config.DefaultAuthFileName
	// DefaultUsersFileName is the default users file name.
	DefaultUsersFileName = config.DefaultUsersFileName
	// DefaultLogFileName is the default client log file name.
	DefaultLogFileName = config.DefaultLogFileName

	// DefaultListenAddr is the default server listen address.
	DefaultListenAddr = config.DefaultListenAddr
	// DefaultBasePath is the default HTTP base path.
	DefaultBasePath = config.DefaultBasePath
	// DefaultTLSMode is the default TLS mode.
	DefaultTLSMode = config.DefaultTLSMode
	// DefaultClientEndpoint is the default chat API endpoint.
	DefaultClientEndpoint = config.DefaultClientEndpoint
)

// NewLoader returns a config loader.
func NewLoader() *config.Loader {
	return config.NewLoader()
}

// DefaultConfig returns the default parley configuration.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// DefaultConfigDir returns the default config directory.
func DefaultConfigDir() string {
	return config.DefaultConfigDir()
}

// DefaultConfigPath returns the default config path.
func DefaultConfigPath() string {
	return config.DefaultConfigPath()
}

// DefaultAuthPath returns the default auth file path.
func DefaultAuthPath() string {
	return config.DefaultAuthPath()
}

// DefaultLogPath returns the default client log path.
func DefaultLogPath() string {
	return config.DefaultLogPath()
}

// DefaultTLSCacheDir returns the default ACME cache directory.
func DefaultTLSCacheDir() string {
	return config.DefaultTLSCacheDir()
}

// DefaultUsersPath returns the default users file path.
func DefaultUsersPath() string {
	return config.DefaultUsersPath()
}
