package ui

// Config contains TUI-specific configuration.
type Config struct {
	// ShowAllFiles bypasses .gitignore rules during discovery.
	ShowAllFiles bool
	EnableMouse  bool

	// Watch reloads the clip listing when files change on disk.
	Watch bool

	HomeDir string `env:"HOME"`

	// Working directory to scan for audio files.
	Path string
}
