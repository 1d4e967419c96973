package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
)

type Capability string

const (
	CapabilityDescribe Capability = "describe"
	CapabilitySimulate Capability = "simulate"
)

var (
	ErrPluginDisabled      = errors.New("plugin is disabled")
	ErrPluginNotFound      = errors.New("plugin not found")
	ErrChecksumMismatch    = errors.New("plugin checksum mismatch")
	ErrCapabilityMissing   = errors.New("plugin capability missing")
	ErrPluginTimeout       = errors.New("plugin timeout")
	ErrUnsupportedMode     = errors.New("simulation mode not supported by plugin")
	ErrInvalidReactionTime = errors.New("reaction time must be a finite non-negative number")
)

var sha256Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

type Manifest struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Binary       string       `json:"binary"`
	SHA256       string       `json:"sha256"`
	Enabled      bool         `json:"enabled"`
	Capabilities []Capability `json:"capabilities"`
}

func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if m.Binary == "" {
		return fmt.Errorf("plugin binary path is required")
	}
	if !sha256Pattern.MatchString(m.SHA256) {
		return fmt.Errorf("plugin sha256 must be lowercase 64-char hex")
	}
	if len(m.Capabilities) == 0 {
		return fmt.Errorf("plugin capabilities are required")
	}
	seen := map[Capability]struct{}{}
	for _, capability := range m.Capabilities {
		if err := capability.Validate(); err != nil {
			return err
		}
		if _, ok := seen[capability]; ok {
			return fmt.Errorf("duplicate capability: %s", capability)
		}
		seen[capability] = struct{}{}
	}
	return nil
}

func (c Capability) Validate() error {
	switch c {
	case CapabilityDescribe, CapabilitySimulate:
		return nil
	default:
		return fmt.Errorf("unknown capability: %s", c)
	}
}

func (m Manifest) HasCapability(capability Capability) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

type Metadata struct {
	Name         string
	Version      string
	Capabilities []Capability
}

// Parameter mirrors one entry of a trial plugin's parameter schema.
type Parameter struct {
	Name        string
	PrettyName  string
	Type        string
	Default     string
	Array       bool
	Description string
}

type Description struct {
	Name       string
	Version    string
	Parameters []Parameter
}

const (
	ModeDataOnly = "data-only"
	ModeVisual   = "visual"
)

type SimulateRequest struct {
	TrialJSON string
	Mode      string
	RT        *float64
	Key       *string
}

func (r SimulateRequest) Validate() error {
	if r.TrialJSON == "" || !json.Valid([]byte(r.TrialJSON)) {
		return fmt.Errorf("trial json must be valid JSON")
	}
	if r.RT != nil && (math.IsNaN(*r.RT) || math.IsInf(*r.RT, 0) || *r.RT < 0) {
		return fmt.Errorf("%w: rt %v", ErrInvalidReactionTime, *r.RT)
	}
	switch r.Mode {
	case "", ModeDataOnly, ModeVisual:
		return nil
	default:
		return fmt.Errorf("unknown simulation mode: %s", r.Mode)
	}
}

// SimulateResult carries the finished trial's data fields, each JSON encoded.
type SimulateResult struct {
	Data map[string]string
}
