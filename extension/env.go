package extension

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Storefront credentials are deliberately kept out of YAML config; they
// come from the environment.

// googlePlayEnv holds Google Play service account settings.
type googlePlayEnv struct {
	PackageName     string `env:"IAP_GOOGLE_PLAY_PACKAGE"`
	CredentialsFile string `env:"IAP_GOOGLE_PLAY_CREDENTIALS_FILE"`
}

// appStoreEnv holds App Store Server API settings.
type appStoreEnv struct {
	KeyID          string `env:"IAP_APP_STORE_KEY_ID"`
	IssuerID       string `env:"IAP_APP_STORE_ISSUER_ID"`
	BundleID       string `env:"IAP_APP_STORE_BUNDLE_ID"`
	PrivateKeyFile string `env:"IAP_APP_STORE_PRIVATE_KEY_FILE"`
}

func loadGooglePlayEnv() (googlePlayEnv, error) {
	var cfg googlePlayEnv
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("iap: parse google play env: %w", err)
	}
	if cfg.PackageName == "" {
		return cfg, fmt.Errorf("iap: IAP_GOOGLE_PLAY_PACKAGE is required for the google_play driver")
	}
	return cfg, nil
}

func (g googlePlayEnv) credentials() ([]byte, error) {
	if g.CredentialsFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(g.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("iap: read google play credentials: %w", err)
	}
	return data, nil
}

func loadAppStoreEnv() (appStoreEnv, error) {
	var cfg appStoreEnv
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("iap: parse app store env: %w", err)
	}
	if cfg.KeyID == "" || cfg.IssuerID == "" || cfg.BundleID == "" || cfg.PrivateKeyFile == "" {
		return cfg, fmt.Errorf("iap: IAP_APP_STORE_KEY_ID, IAP_APP_STORE_ISSUER_ID, " +
			"IAP_APP_STORE_BUNDLE_ID, and IAP_APP_STORE_PRIVATE_KEY_FILE are required for the apple_appstore driver")
	}
	return cfg, nil
}

func (a appStoreEnv) privateKey() ([]byte, error) {
	data, err := os.ReadFile(a.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("iap: read app store private key: %w", err)
	}
	return data, nil
}
