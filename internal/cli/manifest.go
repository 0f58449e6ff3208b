package cli

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/fetch"
)

// Manifest lists the icons of an atlas.
//
//	[[icon]]
//	url = "icons/pin.png"
//	width = 24
//	height = 32
//	anchor_y = 32
//	mask = true
//
// Width and height may be left out; they are then read from the image
// header before packing.
type Manifest struct {
	Icons []ManifestIcon `toml:"icon"`
}

// ManifestIcon is one manifest entry. URL is the sprite key; relative
// paths resolve against the manifest directory.
type ManifestIcon struct {
	Name    string `toml:"name"`
	URL     string `toml:"url"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	Mask    bool   `toml:"mask"`
	AnchorX int    `toml:"anchor_x"`
	AnchorY int    `toml:"anchor_y"`
}

var errEmptyManifest = errors.New("manifest lists no icons")

// loadManifest reads a TOML manifest.
func loadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	if len(m.Icons) == 0 {
		return nil, fmt.Errorf("%s: %w", path, errEmptyManifest)
	}
	return &m, nil
}

// iconItem is the atlas.Props Icon func for manifest entries.
func iconItem(ic ManifestIcon) (atlas.Item, bool) {
	if ic.URL == "" {
		return atlas.Item{}, false
	}
	return atlas.Item{
		Key:    ic.URL,
		Width:  ic.Width,
		Height: ic.Height,
		Mask:   ic.Mask,
		Anchor: image.Pt(ic.AnchorX, ic.AnchorY),
		Meta:   ic.Name,
	}, true
}

// items converts the manifest like the manager does, for progress totals.
func (m *Manifest) items() []atlas.Item {
	var out []atlas.Item
	for _, ic := range m.Icons {
		if it, ok := iconItem(ic); ok && it.Width > 0 && it.Height > 0 {
			out = append(out, it)
		}
	}
	return atlas.UniqueItems(out)
}

// sizeIcons fills in missing sizes from each icon's image header. Icons
// that cannot be read keep a zero size and are skipped when packing.
func (m *Manifest) sizeIcons(ctx context.Context, read func(context.Context, string) ([]byte, error), logger *log.Logger) {
	for i := range m.Icons {
		ic := &m.Icons[i]
		if ic.URL == "" || (ic.Width > 0 && ic.Height > 0) {
			continue
		}
		data, err := read(ctx, ic.URL)
		if err != nil {
			logger.Warn("cannot size icon", "url", ic.URL, "err", err)
			continue
		}
		cfg, _, err := fetch.DecodeConfig(data)
		if err != nil {
			logger.Warn("cannot size icon", "url", ic.URL, "err", err)
			continue
		}
		if ic.Width <= 0 {
			ic.Width = cfg.Width
		}
		if ic.Height <= 0 {
			ic.Height = cfg.Height
		}
		logger.Debug("sized icon", "url", ic.URL, "width", ic.Width, "height", ic.Height)
	}
}
