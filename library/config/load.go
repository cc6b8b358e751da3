// Package config loads the YAML settings file into the shared config store.
package config

import (
	"path/filepath"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/mohamadflefel/JCCAdmin/library/log"
)

// LoadFromFile loads settings from cfgPath and records its directory as `cfg_dir`,
// so relative credential paths can be resolved against it.
func LoadFromFile(cfgPath string) {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		log.Logger.Panic("load configuration",
			zap.Error(err),
			zap.String("config", cfgPath))
	}

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
}

// ResolvePath returns p unchanged when absolute, otherwise joined onto `cfg_dir`.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(gconfig.Shared.GetString("cfg_dir"), p)
}
