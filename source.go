package atlas

import (
	"fmt"

	"github.com/gogpu/atlas/surface"
)

// AtlasRef identifies an externally built atlas image.
//
// Exactly one of Surface and URL is normally set. A Surface is adopted as
// is; a URL is fetched once, its rows flipped into storage order, and the
// result uploaded into a surface owned by the manager.
//
// AtlasRef values are compared with ==, so Surface implementations must be
// comparable (pointer types are).
type AtlasRef struct {
	Surface surface.Surface
	URL     string
}

// IsZero reports whether r refers to nothing.
func (r AtlasRef) IsZero() bool {
	return r.Surface == nil && r.URL == ""
}

// Source selects where a manager's atlas comes from. It is sealed: the
// only implementations are Prepacked[T] and AutoPacked[T].
type Source[T any] interface {
	isSource(T)
}

// Prepacked is an atlas built elsewhere together with its mapping.
// The manager never repacks or patches it.
type Prepacked[T any] struct {
	Atlas   AtlasRef
	Mapping *Mapping
}

func (Prepacked[T]) isSource(T) {}

// AutoPacked is a set of records the manager packs itself. Each record is
// turned into an Item by Props.Icon.
type AutoPacked[T any] struct {
	Data []T
}

func (AutoPacked[T]) isSource(T) {}

// Props are the inputs of a Manager.
type Props[T any] struct {
	// Source is the atlas source. Required.
	Source Source[T]

	// Icon maps a record to its item. Records for which Icon returns false
	// are not packed. In prepacked mode only Item.Key is used, for lookups.
	Icon func(record T) (Item, bool)
}

// ChangeFlags tell Update which inputs changed since the previous call.
//
// Data and accessor identity cannot be compared in general, so callers
// report changes explicitly. Prepacked atlas and mapping changes are
// detected by comparison and need no flag.
type ChangeFlags struct {
	// DataChanged reports a new AutoPacked.Data.
	DataChanged bool

	// IconChanged reports a new Icon function or different Icon results.
	IconChanged bool

	// All forces a repack.
	All bool
}

// repack reports whether a repack is requested.
func (f ChangeFlags) repack() bool {
	return f.DataChanged || f.IconChanged || f.All
}

// Update is sent to Config.OnUpdate whenever the mapping or texture
// observed through a Manager changes, and when a sprite fails to load.
type Update struct {
	// MappingChanged is set when Mapping() returns a new mapping or the
	// current one gained a natural size.
	MappingChanged bool

	// TextureChanged is set when Texture() returns a new surface or its
	// pixels changed.
	TextureChanged bool

	// Key is the sprite the update concerns, empty for whole-atlas changes.
	Key string

	// Err is set, with both flags false, when loading Key failed.
	Err error
}

// Mode is the source mode a manager is in.
type Mode int

const (
	// ModeNone is the mode before the first update.
	ModeNone Mode = iota
	// ModePrepacked serves an externally built atlas.
	ModePrepacked
	// ModeAutoPacked packs and patches records itself.
	ModeAutoPacked
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModePrepacked:
		return "prepacked"
	case ModeAutoPacked:
		return "autopacked"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
