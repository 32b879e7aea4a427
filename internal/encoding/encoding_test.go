package encoding

import "testing"

func TestUTF8CodepointCountCountsRunesNotBytes(t *testing.T) {
	if n := (UTF8{}).CodepointCount([]byte("héllo")); n != 5 {
		t.Fatalf("CodepointCount = %d, want 5", n)
	}
}

func TestUTF8CodepointAtLocatesMultibyteRune(t *testing.T) {
	view := []byte("héllo") // 'é' is 2 bytes, at codepoint index 1
	offset, length, ok := (UTF8{}).CodepointAt(view, 1)
	if !ok {
		t.Fatalf("CodepointAt(1) not found")
	}
	if offset != 1 || length != 2 {
		t.Fatalf("CodepointAt(1) = (%d, %d), want (1, 2)", offset, length)
	}
}

func TestUTF8CodepointAtOutOfRange(t *testing.T) {
	if _, _, ok := (UTF8{}).CodepointAt([]byte("ab"), 5); ok {
		t.Fatalf("expected CodepointAt to report out of range")
	}
}

func TestUTF8DecodeRejectsInvalidBytes(t *testing.T) {
	if _, err := (UTF8{}).Decode([]byte{0xff, 0xfe}); err == nil {
		t.Fatalf("expected an Encoding error for invalid UTF-8")
	}
}

func TestUTF8DecodeStripsLeadingBOM(t *testing.T) {
	bom := []byte{0xEF, 0xBB, 0xBF}
	view := append(bom, []byte("hi")...)
	runes, err := (UTF8{}).Decode(view)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(runes) != "hi" {
		t.Fatalf("Decode with BOM = %q, want %q", string(runes), "hi")
	}
}

func TestUTF8EncodeDecodeRoundtrip(t *testing.T) {
	rs := []rune("a界b")
	encoded := (UTF8{}).EncodeSeq(rs)
	decoded, err := (UTF8{}).Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(decoded) != string(rs) {
		t.Fatalf("roundtrip = %q, want %q", string(decoded), string(rs))
	}
}

func TestUTF32LECodepointCountIsQuarterByteLength(t *testing.T) {
	view := make([]byte, 12)
	if n := (UTF32LE{}).CodepointCount(view); n != 3 {
		t.Fatalf("CodepointCount = %d, want 3", n)
	}
}

func TestUTF32LEDecodeRejectsMisalignedLength(t *testing.T) {
	if _, err := (UTF32LE{}).Decode([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected an error for a length not a multiple of 4")
	}
}

func TestUTF32LEEncodeDecodeRoundtrip(t *testing.T) {
	rs := []rune{'a', 'b', 0x1F600}
	encoded := (UTF32LE{}).EncodeSeq(rs)
	decoded, err := (UTF32LE{}).Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != len(rs) {
		t.Fatalf("roundtrip length = %d, want %d", len(decoded), len(rs))
	}
	for i := range rs {
		if decoded[i] != rs[i] {
			t.Fatalf("decoded[%d] = %q, want %q", i, decoded[i], rs[i])
		}
	}
}

func TestByNameResolvesKnownCodecs(t *testing.T) {
	if c, err := ByName("utf-8"); err != nil || c.Name() != "utf-8" {
		t.Fatalf("ByName(utf-8) = %v, %v", c, err)
	}
	if c, err := ByName("utf-32le"); err != nil || c.Name() != "utf-32le" {
		t.Fatalf("ByName(utf-32le) = %v, %v", c, err)
	}
	if _, err := ByName("shift-jis"); err == nil {
		t.Fatalf("expected an error for an unsupported codec name")
	}
}
