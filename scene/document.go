package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/phanxgames/montage/core"
)

// Format selects the encoding of a project document.
type Format uint8

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	if f == FormatCBOR {
		return "cbor"
	}
	return "json"
}

// FormatForPath picks the format from a file extension: ".cbor" and ".mtgb"
// are binary, anything else is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor", ".mtgb":
		return FormatCBOR
	}
	return FormatJSON
}

// DocumentVersion is written into every project document.
const DocumentVersion = 1

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode writes s as a project document.
func Encode(w io.Writer, s *Scene, f Format) error {
	doc := map[string]any{
		"version": DocumentVersion,
		"scene":   core.MarshalObject(s),
	}
	switch f {
	case FormatCBOR:
		return cborEnc.NewEncoder(w).Encode(doc)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
}

// Decode reads a project document. Unreadable fields inside the scene are
// skipped and logged; only a malformed or incompatible document fails.
func Decode(r io.Reader, f Format) (*Scene, error) {
	var doc map[string]any
	var err error
	switch f {
	case FormatCBOR:
		err = cborDec.NewDecoder(r).Decode(&doc)
	default:
		err = json.NewDecoder(r).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("scene: decode %s document: %w", f, err)
	}
	if v, ok := docVersion(doc["version"]); !ok || v > DocumentVersion {
		return nil, core.NewError("scene.Decode", core.KindDeserializationSkipped, "unsupported document version %v", doc["version"])
	}
	m, ok := doc["scene"].(map[string]any)
	if !ok {
		return nil, core.NewError("scene.Decode", core.KindDeserializationSkipped, "document has no scene")
	}
	return core.UnmarshalAs[*Scene](m)
}

func docVersion(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case uint64:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// Save writes s to path, choosing the format from the extension.
func Save(path string, s *Scene) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, s, FormatForPath(path))
}

// Load reads the project document at path.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, FormatForPath(path))
}
