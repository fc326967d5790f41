// Package extension provides the Forge extension adapter for the IAP
// engine.
//
// It implements the forge.Extension interface to integrate in-app
// purchases into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.iap" or "iap" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	iap "github.com/xraph/iap"
	"github.com/xraph/iap/catalog"
	"github.com/xraph/iap/journal"
	"github.com/xraph/iap/journal/memory"
	journalmongo "github.com/xraph/iap/journal/mongo"
	journalpg "github.com/xraph/iap/journal/postgres"
	journalsqlite "github.com/xraph/iap/journal/sqlite"
	"github.com/xraph/iap/storefront"
	"github.com/xraph/iap/storefront/appstore"
	"github.com/xraph/iap/storefront/fake"
	"github.com/xraph/iap/storefront/googleplay"
	"github.com/xraph/iap/storefront/noop"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "iap"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Storefront-agnostic in-app purchase adapter"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the IAP engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	adapter     *iap.Adapter
	cat         *catalog.Catalog
	client      storefront.Client
	journal     journal.Store
	db          *grove.DB
	adapterOpts []iap.Option
}

// New creates a new IAP Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Adapter returns the underlying IAP adapter.
// This is nil until Register is called.
func (e *Extension) Adapter() *iap.Adapter { return e.adapter }

// Register implements [forge.Extension]. It loads configuration,
// initializes the adapter, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.cat == nil && e.config.CatalogPath != "" {
		cat, err := catalog.LoadFile(e.config.CatalogPath)
		if err != nil {
			return err
		}
		e.cat = cat
	}
	if e.cat == nil && e.config.AutoInitialize {
		return errors.New("iap: auto-initialize requires a catalog; set catalog_path or use WithCatalog")
	}

	if e.client == nil {
		client, err := e.buildClient()
		if err != nil {
			return err
		}
		e.client = client
	}

	if e.journal == nil {
		store, err := e.buildJournal()
		if err != nil {
			return err
		}
		e.journal = store
	}
	if e.config.DisableMigrate {
		e.journal = noMigrate{e.journal}
	}

	opts := make([]iap.Option, 0, len(e.adapterOpts)+2)
	opts = append(opts, iap.WithJournal(e.journal))
	if e.config.QueueSize > 0 {
		opts = append(opts, iap.WithQueueSize(e.config.QueueSize))
	}
	opts = append(opts, e.adapterOpts...)

	e.adapter = iap.New(e.client, opts...)

	return vessel.Provide(fapp.Container(), func() (*iap.Adapter, error) {
		return e.adapter, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.adapter == nil {
		return errors.New("iap: extension not initialized")
	}

	if err := e.adapter.Start(ctx); err != nil {
		return err
	}

	if e.config.AutoInitialize {
		if err := e.adapter.Initialize(ctx, e.cat); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.adapter != nil {
		if err := e.adapter.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.journal == nil {
		return errors.New("iap: journal not initialized")
	}
	return e.journal.Ping(ctx)
}

// buildClient constructs the storefront client named by the config.
func (e *Extension) buildClient() (storefront.Client, error) {
	switch storefront.Name(e.config.Driver) {
	case storefront.NameNoop, "":
		return noop.New(), nil

	case storefront.NameFake:
		return fake.New(), nil

	case storefront.NameGooglePlay:
		envCfg, err := loadGooglePlayEnv()
		if err != nil {
			return nil, err
		}
		creds, err := envCfg.credentials()
		if err != nil {
			return nil, err
		}
		return googleplay.New(context.Background(), googleplay.Config{
			PackageName:     envCfg.PackageName,
			CredentialsJSON: creds,
		}, nil)

	case storefront.NameAppleAppStore:
		envCfg, err := loadAppStoreEnv()
		if err != nil {
			return nil, err
		}
		key, err := envCfg.privateKey()
		if err != nil {
			return nil, err
		}
		return appstore.New(appstore.Config{
			KeyID:      envCfg.KeyID,
			IssuerID:   envCfg.IssuerID,
			BundleID:   envCfg.BundleID,
			PrivateKey: key,
			Sandbox:    e.config.Sandbox,
		})

	default:
		return nil, fmt.Errorf("iap: %w: %q", iap.ErrDriverNotFound, e.config.Driver)
	}
}

// buildJournal constructs the journal store named by the config.
func (e *Extension) buildJournal() (journal.Store, error) {
	switch e.config.Journal {
	case "memory", "":
		return memory.New(), nil
	case "sqlite":
		if e.db == nil {
			return nil, fmt.Errorf("%w: sqlite journal requires a grove database (use WithGroveDB)", iap.ErrDriverNotConfigured)
		}
		return journalsqlite.New(e.db), nil
	case "postgres":
		if e.db == nil {
			return nil, fmt.Errorf("%w: postgres journal requires a grove database (use WithGroveDB)", iap.ErrDriverNotConfigured)
		}
		return journalpg.New(e.db), nil
	case "mongo":
		if e.db == nil {
			return nil, fmt.Errorf("%w: mongo journal requires a grove database (use WithGroveDB)", iap.ErrDriverNotConfigured)
		}
		return journalmongo.New(e.db), nil
	default:
		return nil, fmt.Errorf("iap: unknown journal backend %q", e.config.Journal)
	}
}

// noMigrate suppresses journal auto-migration on start.
type noMigrate struct {
	journal.Store
}

func (noMigrate) Migrate(context.Context) error { return nil }

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("iap: configuration is required but not found in config files; " +
				"ensure 'extensions.iap' or 'iap' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("iap: configuration loaded",
		forge.F("driver", e.config.Driver),
		forge.F("journal", e.config.Journal),
		forge.F("catalog_path", e.config.CatalogPath),
		forge.F("queue_size", e.config.QueueSize),
		forge.F("auto_initialize", e.config.AutoInitialize),
		forge.F("disable_migrate", e.config.DisableMigrate),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.iap" first (namespaced pattern).
	if cm.IsSet("extensions.iap") {
		if err := cm.Bind("extensions.iap", &cfg); err == nil {
			e.Logger().Debug("iap: loaded config from file",
				forge.F("key", "extensions.iap"),
			)
			return cfg, true
		}
		e.Logger().Warn("iap: failed to bind extensions.iap config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "iap" key.
	if cm.IsSet("iap") {
		if err := cm.Bind("iap", &cfg); err == nil {
			e.Logger().Debug("iap: loaded config from file",
				forge.F("key", "iap"),
			)
			return cfg, true
		}
		e.Logger().Warn("iap: failed to bind iap config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Journal == "" {
		cfg.Journal = defaults.Journal
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.AutoInitialize {
		yamlConfig.AutoInitialize = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.Sandbox {
		yamlConfig.Sandbox = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Driver == "" && programmaticConfig.Driver != "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.Journal == "" && programmaticConfig.Journal != "" {
		yamlConfig.Journal = programmaticConfig.Journal
	}
	if yamlConfig.CatalogPath == "" && programmaticConfig.CatalogPath != "" {
		yamlConfig.CatalogPath = programmaticConfig.CatalogPath
	}

	// Int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.QueueSize == 0 && programmaticConfig.QueueSize != 0 {
		yamlConfig.QueueSize = programmaticConfig.QueueSize
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
