// Package encoding provides codepoint-indexed views over byte strings for
// the editing core. A Codec is polymorphic over the line's byte encoding;
// TextBlock lines and cursor columns are always addressed in codepoints,
// never bytes, and a Codec is the only place that boundary is crossed.
package encoding

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sloked-go/sloked/internal/corerr"
)

// stripBOM removes a leading UTF-8 byte-order mark using
// golang.org/x/text/encoding/unicode's BOM-aware decoder, which is the
// ecosystem way the retrieved corpus reaches for UTF-8 BOM handling; a
// document opened from an upstream file may carry one even though the
// in-memory TextBlock never should.
func stripBOM(view []byte) ([]byte, error) {
	if len(view) < 3 || view[0] != 0xEF || view[1] != 0xBB || view[2] != 0xBF {
		return view, nil
	}
	reader := transform.NewReader(bytes.NewReader(view), unicode.UTF8BOM.NewDecoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, corerr.Wrap(corerr.Encoding, err, "stripping utf-8 BOM")
	}
	return out, nil
}

// IterateFunc is invoked once per codepoint during Iterate. Returning false
// aborts iteration early.
type IterateFunc func(byteOffset, byteLength int, r rune) bool

// Codec encodes and decodes text under one character encoding and answers
// codepoint-indexed queries over a byte view.
type Codec interface {
	// Name identifies the codec (e.g. "utf-8", "utf-32le").
	Name() string

	// CodepointCount returns the number of codepoints encoded in view.
	CodepointCount(view []byte) int

	// CodepointAt returns the byte offset and byte length of the index-th
	// codepoint in view. ok is false if index is out of range.
	CodepointAt(view []byte, index int) (byteOffset, byteLength int, ok bool)

	// Iterate calls cb once per codepoint in ascending order. It returns
	// whether iteration completed (true) or was aborted by cb returning
	// false.
	Iterate(view []byte, cb IterateFunc) bool

	// Encode encodes a single rune.
	Encode(r rune) []byte

	// EncodeSeq encodes a sequence of runes.
	EncodeSeq(rs []rune) []byte

	// Decode decodes view into a sequence of runes, or an Encoding error if
	// view contains an invalid byte sequence.
	Decode(view []byte) ([]rune, error)
}

// UTF8 is the UTF-8 codec. Codepoint indices count runes, byte offsets
// count UTF-8 code units.
type UTF8 struct{}

func (UTF8) Name() string { return "utf-8" }

func (UTF8) CodepointCount(view []byte) int {
	return utf8.RuneCount(view)
}

func (UTF8) CodepointAt(view []byte, index int) (int, int, bool) {
	if index < 0 {
		return 0, 0, false
	}
	offset := 0
	for i := 0; i <= index && offset <= len(view); i++ {
		if offset == len(view) {
			return 0, 0, false
		}
		_, size := utf8.DecodeRune(view[offset:])
		if i == index {
			return offset, size, true
		}
		offset += size
	}
	return 0, 0, false
}

func (UTF8) Iterate(view []byte, cb IterateFunc) bool {
	offset := 0
	for offset < len(view) {
		r, size := utf8.DecodeRune(view[offset:])
		if !cb(offset, size, r) {
			return false
		}
		offset += size
	}
	return true
}

func (UTF8) Encode(r rune) []byte {
	buf := make([]byte, utf8.RuneLen(r))
	utf8.EncodeRune(buf, r)
	return buf
}

func (c UTF8) EncodeSeq(rs []rune) []byte {
	out := make([]byte, 0, len(rs)*3)
	for _, r := range rs {
		out = append(out, c.Encode(r)...)
	}
	return out
}

func (UTF8) Decode(view []byte) ([]rune, error) {
	view, err := stripBOM(view)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(view) {
		return nil, corerr.New(corerr.Encoding, "invalid utf-8 byte sequence")
	}
	return []rune(string(view)), nil
}

// UTF32LE is the fixed-width UTF-32 little-endian codec. There is no
// ecosystem codec for UTF-32 in the retrieved corpus (golang.org/x/text's
// encoding/unicode package covers UTF-8/UTF-16 variants only), so this is
// hand-rolled directly over encoding/binary.
type UTF32LE struct{}

func (UTF32LE) Name() string { return "utf-32le" }

func (UTF32LE) CodepointCount(view []byte) int {
	return len(view) / 4
}

func (UTF32LE) CodepointAt(view []byte, index int) (int, int, bool) {
	offset := index * 4
	if index < 0 || offset+4 > len(view) {
		return 0, 0, false
	}
	return offset, 4, true
}

func (c UTF32LE) Iterate(view []byte, cb IterateFunc) bool {
	count := c.CodepointCount(view)
	for i := 0; i < count; i++ {
		offset := i * 4
		r := rune(binary.LittleEndian.Uint32(view[offset : offset+4]))
		if !cb(offset, 4, r) {
			return false
		}
	}
	return true
}

func (UTF32LE) Encode(r rune) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(r))
	return buf
}

func (c UTF32LE) EncodeSeq(rs []rune) []byte {
	out := make([]byte, 0, len(rs)*4)
	for _, r := range rs {
		out = append(out, c.Encode(r)...)
	}
	return out
}

func (UTF32LE) Decode(view []byte) ([]rune, error) {
	if len(view)%4 != 0 {
		return nil, corerr.New(corerr.Encoding, "utf-32le byte sequence length not a multiple of 4")
	}
	out := make([]rune, 0, len(view)/4)
	for offset := 0; offset < len(view); offset += 4 {
		out = append(out, rune(binary.LittleEndian.Uint32(view[offset:offset+4])))
	}
	return out, nil
}

// ByName resolves a codec by its configuration name ("utf-8", "utf-32le").
func ByName(name string) (Codec, error) {
	switch name {
	case "utf-8", "utf8", "":
		return UTF8{}, nil
	case "utf-32le", "utf32le":
		return UTF32LE{}, nil
	default:
		return nil, corerr.Newf(corerr.Encoding, "unknown encoding %q", name)
	}
}
