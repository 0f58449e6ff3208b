package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/fetch"
	"github.com/gogpu/atlas/surface"
)

type packOptions struct {
	out         string
	maxWidth    int
	concurrency int
	filter      string
	backend     string
	noProgress  bool
}

func (c *CLI) packCommand() *cobra.Command {
	var opts packOptions
	cmd := &cobra.Command{
		Use:   "pack <manifest.toml>",
		Short: "Pack the icons of a manifest into an atlas",
		Long: `Pack reads a TOML manifest of icons, fetches every bitmap (local paths,
file:// or http(s):// URLs), packs them into one atlas and writes
<out>.png and <out>.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("max-width") {
				opts.maxWidth = cfg.Pack.MaxWidth
			}
			if !flags.Changed("concurrency") {
				opts.concurrency = cfg.Pack.Concurrency
			}
			if !flags.Changed("filter") {
				opts.filter = cfg.Pack.Filter
			}
			if !flags.Changed("backend") {
				opts.backend = cfg.Pack.Backend
			}
			return c.runPack(cmd.Context(), args[0], opts, cfg.Pack)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "atlas", "output path prefix")
	cmd.Flags().IntVar(&opts.maxWidth, "max-width", atlas.DefaultMaxSurfaceWidth, "atlas width")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", atlas.DefaultMaxConcurrentFetches, "concurrent fetches")
	cmd.Flags().StringVar(&opts.filter, "filter", "linear", "sampler filter: linear or nearest")
	cmd.Flags().StringVar(&opts.backend, "backend", "image", `surface backend, or "auto" for the best available (see "atlaspack backends")`)
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

func (c *CLI) runPack(ctx context.Context, manifestPath string, opts packOptions, pc PackConfig) error {
	prog := newProgress(c.Logger)

	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}
	filtering, err := parseFilter(opts.filter)
	if err != nil {
		return err
	}
	alloc, err := newAllocator(opts.backend)
	if err != nil {
		return err
	}

	loaderOpts := []fetch.LoaderOption{fetch.WithFS(os.DirFS(filepath.Dir(manifestPath)))}
	for k, v := range pc.Headers {
		loaderOpts = append(loaderOpts, fetch.WithHeader(k, v))
	}
	loader := fetch.NewLoader(loaderOpts...)
	manifest.sizeIcons(ctx, loader.Read, c.Logger)
	fetcher := fetch.NewCached(loader, pc.CacheSize)

	total := len(manifest.items())
	bar := c.newBar(total, opts.noProgress)
	var failed int
	onUpdate := func(u atlas.Update) {
		if u.Key == "" {
			return
		}
		if u.Err != nil {
			failed++
			c.Logger.Warn("icon failed", "url", u.Key, "err", u.Err)
		}
		_ = bar.Add(1)
	}

	m, err := atlas.New(atlas.Props[ManifestIcon]{
		Source: atlas.AutoPacked[ManifestIcon]{Data: manifest.Icons},
		Icon:   iconItem,
	},
		atlas.WithMaxSurfaceWidth(opts.maxWidth),
		atlas.WithMaxConcurrentFetches(opts.concurrency),
		atlas.WithFiltering(filtering),
		atlas.WithAllocator(alloc),
		atlas.WithFetcher(fetcher),
		atlas.WithOnUpdate(onUpdate),
	)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		_ = m.Close()
		return ctx.Err()
	}
	_ = bar.Finish()

	img, err := m.Store().Export()
	if err != nil {
		return fmt.Errorf("export atlas: %w", err)
	}
	if err := writePNG(opts.out+".png", img); err != nil {
		return err
	}
	if err := writeJSON(opts.out+".json", m.Mapping()); err != nil {
		return err
	}

	c.Logger.Debug("fetch cache", "stats", fetcher.Stats())
	if failed > 0 {
		c.Logger.Warnf("%d of %d icons failed to load", failed, total)
	}
	prog.done(fmt.Sprintf("Packed %d icons into %dx%d %s.png", total, img.Bounds().Dx(), img.Bounds().Dy(), opts.out))
	return nil
}

// newBar returns a progress bar over n sprites, or a silent one.
func (c *CLI) newBar(n int, silent bool) *progressbar.ProgressBar {
	if silent {
		return progressbar.DefaultSilent(int64(n))
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(c.Out),
		progressbar.OptionSetDescription("fetching"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// newAllocator returns the named surface backend's allocator. "auto" picks
// the highest-priority backend that is available.
func newAllocator(name string) (surface.Allocator, error) {
	if name == "auto" {
		return surface.DefaultAllocator()
	}
	return surface.NewAllocator(name)
}
