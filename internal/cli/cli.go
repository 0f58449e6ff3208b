// Package cli implements the atlaspack command-line interface.
//
// # Commands
//
//   - pack: pack the icons listed in a TOML manifest into an atlas
//   - font: build a glyph or SDF font atlas
//   - backends: list the surface backends
//
// Both write a PNG image (top-down, as packed) and a JSON mapping next to it.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The
// charmbracelet/log logger is installed as the slog handler of the atlas
// packages, so library logs share its format.
package cli

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gogpu/atlas"
)

const appName = "atlaspack"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives progress bars.
	Out io.Writer

	configPath string
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Pack icons and glyphs into texture atlases",
		Long:         `atlaspack packs icon bitmaps and font glyphs into power-of-two texture atlases and writes the atlas image with a JSON mapping of every sprite.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			atlas.SetLogger(slog.New(c.Logger))
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "TOML config file")

	root.AddCommand(c.packCommand())
	root.AddCommand(c.fontCommand())
	root.AddCommand(c.backendsCommand())

	return root
}
