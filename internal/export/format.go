package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for an unsupported output format name.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// cborEnc uses Core Deterministic Encoding so the same scene always
// produces identical bytes.
var cborEnc cbor.EncMode

var cborDec cbor.DecMode

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("export: CBOR decoder initialization failed: " + err.Error())
	}
}

// ParseFormat parses a format name, ignoring case. "yml" is accepted.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	return "." + string(f)
}

// Encode serializes doc.
func Encode(f Format, doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes doc to w.
func Write(w io.Writer, f Format, doc *Document) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatCBOR:
		if err := cborEnc.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encoding cbor: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Read parses a document previously produced by Write.
func Read(r io.Reader, f Format) (*Document, error) {
	doc := &Document{}
	switch f {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(doc); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	case FormatCBOR:
		if err := cborDec.NewDecoder(r).Decode(doc); err != nil {
			return nil, fmt.Errorf("decoding cbor: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	return doc, nil
}
