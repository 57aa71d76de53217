package ui

import (
	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/model"
)

// saveDefaultScale persists the scale the TUI opens with.
func saveDefaultScale(scale model.TimeScale) error {
	cfg := config.LoadFile(config.Path())
	cfg.DefaultScale = scale
	return config.Save(cfg)
}
