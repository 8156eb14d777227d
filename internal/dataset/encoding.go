// Bookshelf - Book Discovery and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bookshelf

package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is the character set of the dataset files. Everything past the
// loader works on UTF-8.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingLatin1      Encoding = "latin-1"
	EncodingWindows1252 Encoding = "windows-1252"
)

// ErrUnknownEncoding is returned for an encoding name ParseEncoding does not know.
var ErrUnknownEncoding = errors.New("unknown dataset encoding")

// ParseEncoding accepts the common spellings of the supported encodings.
// An empty name means UTF-8.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "latin-1", "latin1", "iso-8859-1":
		return EncodingLatin1, nil
	case "windows-1252", "cp1252":
		return EncodingWindows1252, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

func (e Encoding) charmap() *charmap.Charmap {
	switch e {
	case EncodingLatin1:
		return charmap.ISO8859_1
	case EncodingWindows1252:
		return charmap.Windows1252
	default:
		return nil
	}
}

// toUTF8 transcodes a whole file. UTF-8 data is returned as is; invalid
// sequences in it are left for the parsers to reject row by row.
func (e Encoding) toUTF8(data []byte) ([]byte, error) {
	cm := e.charmap()
	if cm == nil || data == nil {
		return data, nil
	}
	// A UTF-8 BOM on a single-byte file would decode to three junk runes.
	data = bytes.TrimPrefix(data, utf8BOM)

	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", e, err)
	}
	return out, nil
}

// validUTF8 reports whether every field of rec is valid UTF-8.
func validUTF8(rec []string) bool {
	for _, f := range rec {
		if !utf8.ValidString(f) {
			return false
		}
	}
	return true
}
