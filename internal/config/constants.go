package config

const (
	// DefaultConfigDirName is the directory name under the home directory.
	DefaultConfigDirName = ".parley"
	// DefaultConfigFileName is the default config file name.
	DefaultConfigFileName = "config.yaml"
	// DefaultAuthFileName is the default auth file name.
	DefaultAuthFileName = "auth.json"
	// DefaultTLSDirName is the TLS directory name under the config directory.
	DefaultTLSDirName = "tls"
	// DefaultTLSCacheDirName is the ACME cache directory name under the TLS directory.
	DefaultTLSCacheDirName = "cache"
	// DefaultUsersFileName is the default dev server users file name.
	DefaultUsersFileName = "users.json"
	// DefaultLogFileName is the default client log file name.
	DefaultLogFileName = "parley.log"

	// DefaultListenAddr is the default dev server listen address.
	DefaultListenAddr = "127.0.0.1:14702"
	// DefaultBasePath is the default HTTP base path.
	DefaultBasePath = "/api"
	// DefaultTLSMode is the default TLS mode for the dev server.
	DefaultTLSMode = "off"
	// DefaultClientEndpoint is the default chat API endpoint.
	DefaultClientEndpoint = "http://127.0.0.1:14702/api"
	// DefaultDeviceName is used when no device label can be detected.
	DefaultDeviceName = "Unknown Device"
)
