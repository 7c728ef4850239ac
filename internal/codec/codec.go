// Package codec converts the document to and from its persisted string form.
//
// Three forms are recognised on read:
//
//	{...}                    plain JSON
//	dsv1:gzip+b64:<payload>  tagged envelope, gzip then standard base64
//	eyJ...                   untagged base64 of plain JSON, as older builds wrote it
//
// Writes produce either plain JSON or the tagged envelope.
package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/starford/devspace/internal/apperr"
	"github.com/starford/devspace/internal/models"
)

// EnvelopePrefix tags compressed payloads.
const EnvelopePrefix = "dsv1:gzip+b64:"

// legacyPrefix is what base64 of a JSON object starting with `{"` looks like.
const legacyPrefix = "eyJ"

// Format identifies the encoding of a persisted string.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatEnvelope Format = "envelope"
	FormatLegacy   Format = "legacy-base64"
	FormatUnknown  Format = "unknown"
)

// Detect reports which form raw is in without decoding it.
func Detect(raw string) Format {
	s := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(s, EnvelopePrefix):
		return FormatEnvelope
	case strings.HasPrefix(s, "{"):
		return FormatPlain
	case strings.HasPrefix(s, legacyPrefix):
		return FormatLegacy
	default:
		return FormatUnknown
	}
}

// Encode serialises doc compactly, wrapping it in the compressed envelope
// when compress is set.
func Encode(doc *models.Document, compress bool) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if !compress {
		return string(data), nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("compress document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress document: %w", err)
	}
	return EnvelopePrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodePretty serialises doc as indented JSON for export files.
func EncodePretty(doc *models.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses raw in any recognised form. Failures wrap apperr.ErrDecode.
func Decode(raw string) (*models.Document, error) {
	data, err := Unwrap(raw)
	if err != nil {
		return nil, err
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDecode, err)
	}
	doc.Normalize()
	return &doc, nil
}

// Unwrap returns the plain JSON bytes behind raw.
func Unwrap(raw string) ([]byte, error) {
	s := strings.TrimSpace(raw)
	switch Detect(s) {
	case FormatPlain:
		return []byte(s), nil
	case FormatEnvelope:
		gz, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, EnvelopePrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: envelope base64: %v", apperr.ErrDecode, err)
		}
		zr, err := gzip.NewReader(bytes.NewReader(gz))
		if err != nil {
			return nil, fmt.Errorf("%w: envelope gzip: %v", apperr.ErrDecode, err)
		}
		defer zr.Close()
		data, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: envelope gzip: %v", apperr.ErrDecode, err)
		}
		return data, nil
	case FormatLegacy:
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: legacy base64: %v", apperr.ErrDecode, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unrecognised format", apperr.ErrDecode)
	}
}
