package gma

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/katalvlaran/dspace/oracle"
)

const (
	blobVersion = 1
	kindSystem  = "system"
	kindCase    = "case"
)

// blob is the engine-owned wire form of a handle. A case is stored by
// number, subcase path and constraints and recomputed on decode.
type blob struct {
	Version     int
	Kind        string
	Equations   []string
	Auxiliary   []string
	Options     oracle.SystemOptions
	Number      uint64
	Path        []int
	Constraints []string
}

func (b blob) definition() oracle.Definition {
	return oracle.Definition{Equations: b.Equations, Auxiliary: b.Auxiliary, Options: b.Options}
}

func encode(b blob) ([]byte, error) {
	b.Version = blobVersion
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, fmt.Errorf("gma: encode %s: %w", b.Kind, err)
	}

	return buf.Bytes(), nil
}

func decode(data []byte, kind string) (blob, error) {
	var b blob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return blob{}, fmt.Errorf("gma: decode: %w: %w", oracle.ErrArgument, err)
	}
	if b.Version != blobVersion {
		return blob{}, fmt.Errorf("gma: blob version %d, want %d: %w", b.Version, blobVersion, oracle.ErrArgument)
	}
	if b.Kind != kind {
		return blob{}, fmt.Errorf("gma: blob holds a %s, want %s: %w", b.Kind, kind, oracle.ErrArgument)
	}

	return b, nil
}
