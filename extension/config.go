package extension

// Config holds the IAP extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.iap" or "iap" keys).
type Config struct {
	// Driver selects the storefront backend: "noop", "fake",
	// "google_play", or "apple_appstore" (default: "noop"). Ignored when
	// a client is provided programmatically.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// Journal selects the transaction journal backend: "memory",
	// "sqlite", "postgres", or "mongo" (default: "memory"). The database
	// backends require a grove.DB provided via WithGroveDB.
	Journal string `json:"journal" mapstructure:"journal" yaml:"journal"`

	// CatalogPath points at a JSON product catalog file. Ignored when a
	// catalog is provided programmatically.
	CatalogPath string `json:"catalog_path" mapstructure:"catalog_path" yaml:"catalog_path"`

	// QueueSize is the adapter's dispatch queue capacity (default: 256).
	QueueSize int `json:"queue_size" mapstructure:"queue_size" yaml:"queue_size"`

	// AutoInitialize starts storefront initialization on extension start.
	AutoInitialize bool `json:"auto_initialize" mapstructure:"auto_initialize" yaml:"auto_initialize"`

	// DisableMigrate prevents journal auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Sandbox selects the sandbox environment for drivers that have one.
	Sandbox bool `json:"sandbox" mapstructure:"sandbox" yaml:"sandbox"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:    "noop",
		Journal:   "memory",
		QueueSize: 256,
	}
}
