package designspace

import (
	"context"
	"encoding/base64"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/dspace/caseid"
	"github.com/katalvlaran/dspace/oracle"
)

const (
	envelopeVersion = 1
	kindSpace       = "design_space"
	kindCase        = "case"
)

// envelope is the persisted form of a DesignSpace or Case. Engine holds
// the engine's own encoding, base64 encoded.
type envelope struct {
	Version   int                  `yaml:"version"`
	Kind      string               `yaml:"kind"`
	Case      string               `yaml:"case,omitempty"`
	Equations []string             `yaml:"equations,omitempty"`
	Auxiliary []string             `yaml:"auxiliary,omitempty"`
	Latex     map[string]string    `yaml:"latex,omitempty"`
	Options   oracle.SystemOptions `yaml:"options"`
	Dependent []string             `yaml:"dependent"`
	Engine    string               `yaml:"engine"`
}

func decodeEnvelope(data []byte, kind string) (envelope, []byte, error) {
	var ev envelope
	if err := yaml.Unmarshal(data, &ev); err != nil {
		return envelope{}, nil, fmt.Errorf("%w: %w", oracle.ErrArgument, err)
	}
	if ev.Version != envelopeVersion || ev.Kind != kind {
		return envelope{}, nil, fmt.Errorf("envelope %s v%d, want %s v%d: %w",
			ev.Kind, ev.Version, kind, envelopeVersion, oracle.ErrArgument)
	}
	blob, err := base64.StdEncoding.DecodeString(ev.Engine)
	if err != nil {
		return envelope{}, nil, fmt.Errorf("engine blob: %w: %w", oracle.ErrArgument, err)
	}

	return ev, blob, nil
}

// MarshalBinary encodes the space as a yaml envelope.
func (ds *DesignSpace) MarshalBinary() ([]byte, error) {
	blob, err := ds.sys.Encode()
	if err != nil {
		return nil, fmt.Errorf("MarshalBinary: %w", err)
	}

	return yaml.Marshal(envelope{
		Version:   envelopeVersion,
		Kind:      kindSpace,
		Equations: ds.equations,
		Auxiliary: ds.sys.Auxiliary(),
		Latex:     ds.latex,
		Options:   ds.sys.Options(),
		Dependent: ds.env.dependent,
		Engine:    base64.StdEncoding.EncodeToString(blob),
	})
}

// UnmarshalDesignSpace restores a space written by MarshalBinary. The
// restored system must declare the recorded dependent variables.
func UnmarshalDesignSpace(ctx context.Context, engine oracle.Engine, data []byte, cfg Config) (*DesignSpace, error) {
	ev, blob, err := decodeEnvelope(data, kindSpace)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalDesignSpace: %w", err)
	}
	sys, err := engine.DecodeSystem(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalDesignSpace: %w", err)
	}
	if err := checkVariables("system", ev.Dependent, sys.Dependent()); err != nil {
		_ = sys.Close()
		return nil, fmt.Errorf("UnmarshalDesignSpace: %w", err)
	}

	cfg = cfg.withDefaults()
	cfg.Latex = ev.Latex

	return newSpace(engine, sys, cfg, ev.Equations), nil
}

// MarshalBinary encodes the case as a yaml envelope.
func (c *Case) MarshalBinary() ([]byte, error) {
	blob, err := c.h.Encode()
	if err != nil {
		return nil, fmt.Errorf("MarshalBinary(%s): %w", c.id, err)
	}

	return yaml.Marshal(envelope{
		Version:   envelopeVersion,
		Kind:      kindCase,
		Case:      c.id.String(),
		Dependent: c.env.dependent,
		Engine:    base64.StdEncoding.EncodeToString(blob),
	})
}

// UnmarshalCase restores a case written by Case.MarshalBinary.
func UnmarshalCase(ctx context.Context, engine oracle.Engine, data []byte, cfg Config) (*Case, error) {
	ev, blob, err := decodeEnvelope(data, kindCase)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalCase: %w", err)
	}
	id, err := caseid.Parse(ev.Case)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalCase: %w: %w", oracle.ErrArgument, err)
	}
	h, err := engine.DecodeCase(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalCase: %w", err)
	}

	e := &env{engine: engine, cfg: cfg.withDefaults(), dependent: ev.Dependent}
	c, err := newCase(e, id, h)
	if err != nil {
		return nil, fmt.Errorf("UnmarshalCase: %w", err)
	}

	return c, nil
}

// Archive stores serialized values by key. store.Badger implements it.
//
// Get must return an error matching ErrNotFound (errors.Is) for a key that
// was never stored, so Load reports a missing space the same way for every
// backend.
type Archive interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Save writes the space to a under key.
func (ds *DesignSpace) Save(ctx context.Context, a Archive, key string) error {
	data, err := ds.MarshalBinary()
	if err != nil {
		return err
	}
	if err := a.Put(ctx, key, data); err != nil {
		return fmt.Errorf("Save(%q): %w", key, err)
	}

	return nil
}

// Load reads a space saved under key. A missing key matches ErrNotFound.
func Load(ctx context.Context, a Archive, key string, engine oracle.Engine, cfg Config) (*DesignSpace, error) {
	data, err := a.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("Load(%q): %w", key, err)
	}

	return UnmarshalDesignSpace(ctx, engine, data, cfg)
}
