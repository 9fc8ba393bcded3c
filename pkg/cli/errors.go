package cli

import "errors"

// Common CLI errors
var (
	ErrCAExists    = errors.New("CA already exists - replace it with: mockproxy ca init --force")
	ErrCADirNeeded = errors.New("--dir is required")
	ErrNoConfig    = errors.New("no configuration file given - pass one with -f")
)
