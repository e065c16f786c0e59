package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("chunk text with repetitive structure\n", 50))

	for _, alg := range []CompressionAlgorithm{CompressionNone, CompressionGzip, CompressionZlib, CompressionBrotli} {
		compressed, err := CompressData(payload, alg)
		if err != nil {
			t.Fatalf("%s: CompressData: %v", alg, err)
		}
		if alg != CompressionNone && len(compressed) >= len(payload) {
			t.Errorf("%s: compressed %d bytes to %d, expected reduction on repetitive input",
				alg, len(payload), len(compressed))
		}

		restored, err := DecompressData(compressed, alg)
		if err != nil {
			t.Fatalf("%s: DecompressData: %v", alg, err)
		}
		if !bytes.Equal(restored, payload) {
			t.Errorf("%s: round trip mismatch", alg)
		}
	}
}

func TestCompressTextRoundTrip(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog."
	compressed, err := CompressText(text, CompressionBrotli)
	if err != nil {
		t.Fatalf("CompressText: %v", err)
	}
	restored, err := DecompressText(compressed, CompressionBrotli)
	if err != nil {
		t.Fatalf("DecompressText: %v", err)
	}
	if restored != text {
		t.Errorf("restored = %q", restored)
	}
}

func TestCompressEmptyInput(t *testing.T) {
	out, err := CompressData(nil, CompressionBrotli)
	if err != nil {
		t.Fatalf("CompressData(nil): %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %d bytes for empty input", len(out))
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := CompressData([]byte("x"), "lz4"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
	if _, err := DecompressData([]byte("x"), "lz4"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestHashBytes(t *testing.T) {
	a := HashBytes([]byte("same"))
	b := HashBytes([]byte("same"))
	c := HashBytes([]byte("different"))
	if a != b {
		t.Error("hash not deterministic")
	}
	if a == c {
		t.Error("distinct inputs collided")
	}
	if len(a) != 64 {
		t.Errorf("hex digest length = %d, want 64", len(a))
	}
}
