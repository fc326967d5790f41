package extension

import (
	"github.com/xraph/grove"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/hook"
	"github.com/xraph/iap/journal"
	"github.com/xraph/iap/storefront"
)

// Option configures the IAP Forge extension.
type Option func(*Extension)

// WithCatalog sets the product catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(e *Extension) { e.cat = cat }
}

// WithClient sets the storefront client, overriding the configured driver.
func WithClient(c storefront.Client) Option {
	return func(e *Extension) { e.client = c }
}

// WithJournal sets the journal store, overriding the configured backend.
func WithJournal(s journal.Store) Option {
	return func(e *Extension) { e.journal = s }
}

// WithGroveDB sets the grove database used by the sqlite, postgres, and
// mongo journal backends.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) { e.db = db }
}

// WithAdapterOption passes an iap.Option through to the underlying adapter.
func WithAdapterOption(opt iap.Option) Option {
	return func(e *Extension) {
		e.adapterOpts = append(e.adapterOpts, opt)
	}
}

// WithHook registers an adapter hook.
func WithHook(h hook.Hook) Option {
	return func(e *Extension) {
		e.adapterOpts = append(e.adapterOpts, iap.WithHook(h))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDriver selects the storefront driver by name.
func WithDriver(name string) Option {
	return func(e *Extension) { e.config.Driver = name }
}

// WithCatalogPath points the extension at a JSON catalog file.
func WithCatalogPath(path string) Option {
	return func(e *Extension) { e.config.CatalogPath = path }
}

// WithAutoInitialize starts storefront initialization on extension start.
func WithAutoInitialize() Option {
	return func(e *Extension) { e.config.AutoInitialize = true }
}

// WithDisableMigrate prevents journal auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithSandbox selects the sandbox environment for drivers that have one.
func WithSandbox() Option {
	return func(e *Extension) { e.config.Sandbox = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
