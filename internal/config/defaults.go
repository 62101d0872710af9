package config

// DefaultConfig returns the default configuration values.
func DefaultConfig() Config {
	return Config{
		Client: ClientConfig{
			Endpoint: DefaultClientEndpoint,
			AuthFile: DefaultAuthPath(),
			LogFile:  DefaultLogPath(),
		},
		Server: ServerConfig{
			Listen:    DefaultListenAddr,
			BasePath:  DefaultBasePath,
			DataDir:   DefaultConfigDir(),
			UsersFile: DefaultUsersPath(),
			TLS: TLSConfig{
				Mode:     DefaultTLSMode,
				CacheDir: DefaultTLSCacheDir(),
			},
		},
	}
}
