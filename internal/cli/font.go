package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/fontatlas"
)

// fontJSON is the JSON document written next to a font atlas image.
type fontJSON struct {
	Scale    float64        `json:"scale"`
	FontSize float64        `json:"fontSize"`
	SDF      bool           `json:"sdf"`
	Baseline int            `json:"baseline"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Mapping  *atlas.Mapping `json:"mapping"`
}

func (c *CLI) fontCommand() *cobra.Command {
	var (
		out string
		fc  FontConfig
	)
	cmd := &cobra.Command{
		Use:   "font",
		Short: "Build a glyph or SDF font atlas",
		Long: `Font rasterizes a character set (printable ASCII by default) with a
TrueType or OpenType font, Go Regular when --font is not given, and writes
<out>.png and <out>.json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			merged := cfg.Font
			flags := cmd.Flags()
			if flags.Changed("font") {
				merged.Path = fc.Path
			}
			if flags.Changed("size") {
				merged.Size = fc.Size
			}
			if flags.Changed("padding") {
				merged.Padding = fc.Padding
			}
			if flags.Changed("max-width") {
				merged.MaxWidth = fc.MaxWidth
			}
			if flags.Changed("sdf") {
				merged.SDF = fc.SDF
			}
			if flags.Changed("buffer") {
				merged.Buffer = fc.Buffer
			}
			if flags.Changed("radius") {
				merged.Radius = fc.Radius
			}
			if flags.Changed("cutoff") {
				merged.Cutoff = fc.Cutoff
			}
			if flags.Changed("charset") {
				merged.Charset = fc.Charset
			}
			if flags.Changed("measurer") {
				merged.Measurer = fc.Measurer
			}
			return c.runFont(out, merged)
		},
	}

	defaults := defaultConfig().Font
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "font", "output path prefix")
	f.StringVar(&fc.Path, "font", "", "TrueType/OpenType font file (default Go Regular)")
	f.Float64Var(&fc.Size, "size", defaults.Size, "font size in pixels")
	f.IntVar(&fc.Padding, "padding", defaults.Padding, "padding between glyphs")
	f.IntVar(&fc.MaxWidth, "max-width", defaults.MaxWidth, "atlas width")
	f.BoolVar(&fc.SDF, "sdf", false, "build a signed distance field atlas")
	f.IntVar(&fc.Buffer, "buffer", defaults.Buffer, "SDF buffer around each glyph")
	f.Float64Var(&fc.Radius, "radius", defaults.Radius, "SDF radius")
	f.Float64Var(&fc.Cutoff, "cutoff", defaults.Cutoff, "SDF cutoff")
	f.StringVar(&fc.Charset, "charset", "", "characters to include (default printable ASCII)")
	f.StringVar(&fc.Measurer, "measurer", defaults.Measurer, "advance measurer: opentype or shaping")

	return cmd
}

func (c *CLI) runFont(out string, fc FontConfig) error {
	prog := newProgress(c.Logger)

	cfg := fontatlas.DefaultConfig()
	if fc.Path != "" {
		data, err := os.ReadFile(fc.Path)
		if err != nil {
			return err
		}
		cfg.Font = data
	}
	if fc.Charset != "" {
		cfg.CharacterSet = fontatlas.CharacterSetFromString(fc.Charset)
	}
	cfg.FontSize = fc.Size
	cfg.Padding = fc.Padding
	cfg.MaxWidth = fc.MaxWidth
	cfg.SDF = fc.SDF
	cfg.Buffer = fc.Buffer
	cfg.Radius = fc.Radius
	cfg.Cutoff = fc.Cutoff

	filtering, err := parseFilter(fc.Filter)
	if err != nil {
		return err
	}
	cfg.Filtering = filtering

	switch fc.Measurer {
	case "", "opentype":
	case "shaping":
		m, err := fontatlas.NewShapingMeasurer(cfg.Font, cfg.FontSize)
		if err != nil {
			return err
		}
		cfg.Measurer = m
	default:
		return fmt.Errorf("unknown measurer %q (want opentype or shaping)", fc.Measurer)
	}

	fa, err := fontatlas.Build(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = fa.Close() }()

	if err := writePNG(out+".png", fa.Image); err != nil {
		return err
	}
	doc := fontJSON{
		Scale:    fa.Scale,
		FontSize: fa.FontSize,
		SDF:      fa.SDF,
		Baseline: fa.Baseline,
		Width:    fa.Surface.Width(),
		Height:   fa.Surface.Height(),
		Mapping:  fa.Mapping,
	}
	if err := writeJSON(out+".json", doc); err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Built %d glyphs into %dx%d %s.png", fa.Mapping.Len(), doc.Width, doc.Height, out))
	return nil
}
