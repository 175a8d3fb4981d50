// Package transcode detects the character encoding of uploaded template
// bytes and converts between UTF-8 and the legacy Japanese encodings the
// service accepts for input and download output.
package transcode

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// sniffLimit bounds how much of the input the binary sniff inspects.
const sniffLimit = 1024

// Encoding names accepted by Detect, FromUTF8 and ToUTF8.
const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
	EncodingEUCJP    = "euc-jp"
	EncodingISO2022  = "iso-2022-jp"
)

func lookup(name string) (encoding.Encoding, error) {
	switch name {
	case EncodingShiftJIS:
		return japanese.ShiftJIS, nil
	case EncodingEUCJP:
		return japanese.EUCJP, nil
	case EncodingISO2022:
		return japanese.ISO2022JP, nil
	default:
		return nil, fmt.Errorf("transcode: unknown encoding %q", name)
	}
}

// Detect guesses the encoding of raw. It rejects binary input outright,
// recognizes ISO-2022-JP by its escape sequences (its bytes are plain
// ASCII and would otherwise pass the UTF-8 check), prefers UTF-8 when the
// bytes validate, and distinguishes EUC-JP from Shift_JIS structurally:
// EUC-JP high bytes pair up in 0xA1-0xFE, which Shift_JIS text does not.
func Detect(raw []byte) (string, error) {
	limit := len(raw)
	if limit > sniffLimit {
		limit = sniffLimit
	}
	if bytes.IndexByte(raw[:limit], 0) >= 0 {
		return "", fmt.Errorf("transcode: binary content detected")
	}
	if bytes.Contains(raw, []byte{0x1b, '$'}) || bytes.Contains(raw, []byte{0x1b, '('}) {
		if _, err := decode(raw, japanese.ISO2022JP); err == nil {
			return EncodingISO2022, nil
		}
	}
	if utf8.Valid(raw) {
		return EncodingUTF8, nil
	}
	if looksLikeEUCJP(raw) {
		if _, err := decode(raw, japanese.EUCJP); err == nil {
			return EncodingEUCJP, nil
		}
	}
	if _, err := decode(raw, japanese.ShiftJIS); err == nil {
		return EncodingShiftJIS, nil
	}
	return "", fmt.Errorf("transcode: undetectable encoding")
}

// looksLikeEUCJP reports whether every high byte of raw fits the EUC-JP
// pairing structure.
func looksLikeEUCJP(raw []byte) bool {
	for i := 0; i < len(raw); {
		b := raw[i]
		switch {
		case b < 0x80:
			i++
		case b == 0x8e:
			if i+1 >= len(raw) || raw[i+1] < 0xa1 || raw[i+1] > 0xdf {
				return false
			}
			i += 2
		case b == 0x8f:
			if i+2 >= len(raw) || raw[i+1] < 0xa1 || raw[i+2] < 0xa1 {
				return false
			}
			i += 3
		case b >= 0xa1 && b <= 0xfe:
			if i+1 >= len(raw) || raw[i+1] < 0xa1 || raw[i+1] > 0xfe {
				return false
			}
			i += 2
		default:
			return false
		}
	}
	return true
}

func decode(raw []byte, enc encoding.Encoding) ([]byte, error) {
	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(decoded) || bytes.ContainsRune(decoded, utf8.RuneError) {
		return nil, fmt.Errorf("transcode: lossy decode")
	}
	return decoded, nil
}

// ToUTF8 converts raw to UTF-8, detecting the source encoding. UTF-8 input
// passes through unchanged.
func ToUTF8(raw []byte) ([]byte, error) {
	name, err := Detect(raw)
	if err != nil {
		return nil, err
	}
	if name == EncodingUTF8 {
		return raw, nil
	}
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return decode(raw, enc)
}

// FromUTF8 converts UTF-8 content into the named encoding for download.
func FromUTF8(content string, name string) ([]byte, error) {
	if name == EncodingUTF8 {
		return []byte(content), nil
	}
	enc, err := lookup(name)
	if err != nil {
		return nil, err
	}
	encoded, _, err := transform.Bytes(enc.NewEncoder(), []byte(content))
	if err != nil {
		return nil, fmt.Errorf("transcode: cannot encode to %s: %w", name, err)
	}
	return encoded, nil
}
