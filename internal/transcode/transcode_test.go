package transcode

import (
	"bytes"
	"testing"
)

// "こんにちは" in each encoding.
var (
	sjisGreeting = []byte{0x82, 0xb1, 0x82, 0xf1, 0x82, 0xc9, 0x82, 0xbf, 0x82, 0xcd}
	eucGreeting  = []byte{0xa4, 0xb3, 0xa4, 0xf3, 0xa4, 0xcb, 0xa4, 0xc1, 0xa4, 0xcf}
)

func TestDetectUTF8(t *testing.T) {
	got, err := Detect([]byte("hello こんにちは"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if got != EncodingUTF8 {
		t.Fatalf("Detect = %q, want utf-8", got)
	}
}

func TestDetectShiftJIS(t *testing.T) {
	got, err := Detect(sjisGreeting)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if got != EncodingShiftJIS {
		t.Fatalf("Detect = %q, want shift_jis", got)
	}
}

func TestDetectEUCJP(t *testing.T) {
	got, err := Detect(eucGreeting)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if got != EncodingEUCJP {
		t.Fatalf("Detect = %q, want euc-jp", got)
	}
}

func TestDetectISO2022(t *testing.T) {
	encoded, err := FromUTF8("こんにちは", EncodingISO2022)
	if err != nil {
		t.Fatalf("FromUTF8 failed: %v", err)
	}
	got, err := Detect(encoded)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if got != EncodingISO2022 {
		t.Fatalf("Detect = %q, want iso-2022-jp", got)
	}
}

func TestDetectRejectsBinary(t *testing.T) {
	if _, err := Detect([]byte("abc\x00def")); err == nil {
		t.Fatalf("Detect accepted binary input")
	}
}

func TestToUTF8(t *testing.T) {
	got, err := ToUTF8(sjisGreeting)
	if err != nil {
		t.Fatalf("ToUTF8 failed: %v", err)
	}
	if string(got) != "こんにちは" {
		t.Fatalf("ToUTF8 = %q", got)
	}

	passthrough, err := ToUTF8([]byte("already utf-8"))
	if err != nil {
		t.Fatalf("ToUTF8 failed: %v", err)
	}
	if string(passthrough) != "already utf-8" {
		t.Fatalf("ToUTF8 = %q", passthrough)
	}
}

func TestFromUTF8RoundTrip(t *testing.T) {
	for _, name := range []string{EncodingShiftJIS, EncodingEUCJP, EncodingISO2022} {
		encoded, err := FromUTF8("こんにちは", name)
		if err != nil {
			t.Fatalf("FromUTF8(%s) failed: %v", name, err)
		}
		decoded, err := ToUTF8(encoded)
		if err != nil {
			t.Fatalf("ToUTF8 after %s failed: %v", name, err)
		}
		if string(decoded) != "こんにちは" {
			t.Fatalf("round trip through %s = %q", name, decoded)
		}
	}
}

func TestFromUTF8EUCBytes(t *testing.T) {
	encoded, err := FromUTF8("こんにちは", EncodingEUCJP)
	if err != nil {
		t.Fatalf("FromUTF8 failed: %v", err)
	}
	if !bytes.Equal(encoded, eucGreeting) {
		t.Fatalf("encoded = %x, want %x", encoded, eucGreeting)
	}
}

func TestFromUTF8UnknownEncoding(t *testing.T) {
	if _, err := FromUTF8("x", "klingon"); err == nil {
		t.Fatalf("unknown encoding accepted")
	}
}
