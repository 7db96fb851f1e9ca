package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables that override project.json values.
const (
	EnvSiteURL = "CTH_SITE_URL"
	EnvTheme   = "CTH_THEME"
)

// loadEnv loads root/.env when present. Variables already set in the
// process environment are not overwritten.
func loadEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func applyEnv(p *Project) {
	if v := os.Getenv(EnvSiteURL); v != "" {
		if p.Site == nil {
			p.Site = map[string]any{}
		}
		p.Site["url"] = v
	}
	if v := os.Getenv(EnvTheme); v != "" {
		p.Settings.Theme = v
	}
}
