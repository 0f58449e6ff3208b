package fontatlas

import (
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// DefaultCharacterSet returns the printable ASCII range 32..127.
func DefaultCharacterSet() []rune {
	rs := make([]rune, 0, 96)
	for r := rune(32); r < 128; r++ {
		rs = append(rs, r)
	}
	return rs
}

// NormalizeCharacterSet returns rs sorted and without duplicates.
func NormalizeCharacterSet(rs []rune) []rune {
	if len(rs) == 0 {
		return nil
	}
	return FromTable(rangetable.New(rs...))
}

// CharacterSetFromString returns the normalized runes of s.
func CharacterSetFromString(s string) []rune {
	return NormalizeCharacterSet([]rune(s))
}

// FromTable lists the runes of a Unicode range table in ascending order.
//
// Example:
//
//	cs := fontatlas.FromTable(unicode.Greek)
func FromTable(rt *unicode.RangeTable) []rune {
	if rt == nil {
		return nil
	}
	var rs []rune
	rangetable.Visit(rt, func(r rune) {
		rs = append(rs, r)
	})
	return rs
}

// MergeTables combines character sets given as range tables.
func MergeTables(tables ...*unicode.RangeTable) []rune {
	return FromTable(rangetable.Merge(tables...))
}
