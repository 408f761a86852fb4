// Package config loads and validates remapping profiles. Profiles are strict:
// unknown fields, unknown button or gesture names and ambiguous bind entries
// are fatal at load time so the engine never starts half-configured.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/hyperxmason/rlm2cedit/device/xbox360"
	"github.com/hyperxmason/rlm2cedit/internal/remap"
)

// Duration wraps time.Duration with Go duration-string encoding ("20ms")
// across json, yaml and toml.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"20ms\"")
	}
	return d.UnmarshalText([]byte(s))
}

// Vec2 is a forced analog stick vector.
type Vec2 struct {
	X float64 `json:"x" yaml:"x" toml:"x"`
	Y float64 `json:"y" yaml:"y" toml:"y"`
}

// AlertConfig controls the oversteer alert collaborator.
type AlertConfig struct {
	Enabled   bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	Threshold float64 `json:"threshold" yaml:"threshold" toml:"threshold"`
}

// BindRef names a physical input. Exactly one of Key, Scancode or Mouse must
// be set.
type BindRef struct {
	Key      string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Scancode uint16 `json:"scancode,omitempty" yaml:"scancode,omitempty" toml:"scancode,omitempty"`
	Mouse    string `json:"mouse,omitempty" yaml:"mouse,omitempty" toml:"mouse,omitempty"`
}

// BindEntry associates a physical input with exactly one controller effect:
// a named button, a trigger ("left"/"right") or a forced analog vector.
type BindEntry struct {
	Key      string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Scancode uint16 `json:"scancode,omitempty" yaml:"scancode,omitempty" toml:"scancode,omitempty"`
	Mouse    string `json:"mouse,omitempty" yaml:"mouse,omitempty" toml:"mouse,omitempty"`

	Button  string `json:"button,omitempty" yaml:"button,omitempty" toml:"button,omitempty"`
	Trigger string `json:"trigger,omitempty" yaml:"trigger,omitempty" toml:"trigger,omitempty"`
	Analog  *Vec2  `json:"analog,omitempty" yaml:"analog,omitempty" toml:"analog,omitempty"`
}

// LimitEntry binds a physical input to a soft-limit control action.
type LimitEntry struct {
	Key      string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	Scancode uint16 `json:"scancode,omitempty" yaml:"scancode,omitempty" toml:"scancode,omitempty"`
	Mouse    string `json:"mouse,omitempty" yaml:"mouse,omitempty" toml:"mouse,omitempty"`

	Action string `json:"action" yaml:"action" toml:"action"`
}

// Profile is the on-disk remapping configuration.
type Profile struct {
	Sensitivity       float64  `json:"sensitivity" yaml:"sensitivity" toml:"sensitivity"`
	SampleWindow      Duration `json:"sample_window" yaml:"sample_window" toml:"sample_window"`
	DodgeLockDuration Duration `json:"dodge_lock_duration" yaml:"dodge_lock_duration" toml:"dodge_lock_duration"`
	PollBudget        Duration `json:"poll_budget" yaml:"poll_budget" toml:"poll_budget"`

	Shaping string `json:"shaping" yaml:"shaping" toml:"shaping"`
	MaskX   bool   `json:"mask_x" yaml:"mask_x" toml:"mask_x"`
	MaskY   bool   `json:"mask_y" yaml:"mask_y" toml:"mask_y"`

	LimitStep      float64     `json:"limit_step" yaml:"limit_step" toml:"limit_step"`
	OversteerAlert AlertConfig `json:"oversteer_alert" yaml:"oversteer_alert" toml:"oversteer_alert"`

	Binds      []BindEntry        `json:"binds" yaml:"binds" toml:"binds"`
	Dodge      map[string]BindRef `json:"dodge,omitempty" yaml:"dodge,omitempty" toml:"dodge,omitempty"`
	LimitBinds []LimitEntry       `json:"limit_binds,omitempty" yaml:"limit_binds,omitempty" toml:"limit_binds,omitempty"`
}

// DefaultProfile returns a starter profile with the stock tunables and a
// small example bind set.
func DefaultProfile() Profile {
	return Profile{
		Sensitivity:       1.0,
		SampleWindow:      Duration(20 * time.Millisecond),
		DodgeLockDuration: Duration(50 * time.Millisecond),
		PollBudget:        Duration(2 * time.Millisecond),
		Shaping:           "circular",
		LimitStep:         0.1,
		OversteerAlert:    AlertConfig{Enabled: false, Threshold: 1.5},
		Binds: []BindEntry{
			{Key: "space", Button: "a"},
			{Mouse: "left", Trigger: "right"},
			{Key: "lshift", Analog: &Vec2{X: 0, Y: 1}},
		},
		Dodge: map[string]BindRef{
			"jump":     {Key: "space"},
			"forward":  {Key: "w"},
			"backward": {Key: "s"},
			"left":     {Key: "a"},
			"right":    {Key: "d"},
		},
	}
}

// Load reads a profile from path, choosing the decoder by extension
// (.yaml/.yml, .toml, .json). All decoders reject unknown fields.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	p := DefaultProfile()
	p.Binds = nil
	p.Dodge = nil

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(string(data)))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(strings.NewReader(string(data)))
		dec.Strict(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q (want .yaml, .toml or .json)", ext)
	}

	return &p, nil
}

// Compile validates the profile and resolves all names into the engine's
// immutable lookup tables.
func (p *Profile) Compile() (remap.Config, error) {
	cfg := remap.DefaultConfig()

	if p.Sensitivity <= 0 {
		return cfg, fmt.Errorf("sensitivity must be positive, got %v", p.Sensitivity)
	}
	if p.SampleWindow <= 0 {
		return cfg, fmt.Errorf("sample_window must be positive, got %v", time.Duration(p.SampleWindow))
	}
	if p.DodgeLockDuration <= 0 {
		return cfg, fmt.Errorf("dodge_lock_duration must be positive, got %v", time.Duration(p.DodgeLockDuration))
	}
	if p.PollBudget <= 0 {
		return cfg, fmt.Errorf("poll_budget must be positive, got %v", time.Duration(p.PollBudget))
	}
	if p.LimitStep <= 0 || p.LimitStep > 1 {
		return cfg, fmt.Errorf("limit_step must be in (0,1], got %v", p.LimitStep)
	}

	cfg.Sensitivity = p.Sensitivity
	cfg.SampleWindow = time.Duration(p.SampleWindow)
	cfg.DodgeLockDuration = time.Duration(p.DodgeLockDuration)
	cfg.PollBudget = time.Duration(p.PollBudget)
	cfg.MaskX = p.MaskX
	cfg.MaskY = p.MaskY
	cfg.LimitStep = p.LimitStep
	cfg.AlertThreshold = p.OversteerAlert.Threshold

	switch p.Shaping {
	case "", "circular":
		cfg.Shaping = remap.ShapeCircular
	case "linear":
		cfg.Shaping = remap.ShapeLinear
	default:
		return cfg, fmt.Errorf("unknown shaping mode %q (want circular or linear)", p.Shaping)
	}

	for i, entry := range p.Binds {
		bind, err := resolveBind(entry.Key, entry.Scancode, entry.Mouse)
		if err != nil {
			return cfg, fmt.Errorf("binds[%d]: %w", i, err)
		}
		if _, dup := cfg.Binds[bind]; dup {
			return cfg, fmt.Errorf("binds[%d]: duplicate bind %s", i, bind)
		}
		action, err := resolveAction(entry)
		if err != nil {
			return cfg, fmt.Errorf("binds[%d]: %w", i, err)
		}
		cfg.Binds[bind] = action
	}

	for name, ref := range p.Dodge {
		gesture, ok := dodgeByName[name]
		if !ok {
			return cfg, fmt.Errorf("dodge: unknown gesture %q", name)
		}
		bind, err := resolveBind(ref.Key, ref.Scancode, ref.Mouse)
		if err != nil {
			return cfg, fmt.Errorf("dodge.%s: %w", name, err)
		}
		cfg.DodgeBinds[gesture] = bind
	}

	for i, entry := range p.LimitBinds {
		bind, err := resolveBind(entry.Key, entry.Scancode, entry.Mouse)
		if err != nil {
			return cfg, fmt.Errorf("limit_binds[%d]: %w", i, err)
		}
		action, ok := limitByName[entry.Action]
		if !ok {
			return cfg, fmt.Errorf("limit_binds[%d]: unknown limit action %q", i, entry.Action)
		}
		if _, dup := cfg.LimitBinds[bind]; dup {
			return cfg, fmt.Errorf("limit_binds[%d]: duplicate bind %s", i, bind)
		}
		cfg.LimitBinds[bind] = action
	}

	return cfg, nil
}

var dodgeByName = map[string]remap.DodgeAction{
	"jump":     remap.DodgeJump,
	"forward":  remap.DodgeForward,
	"backward": remap.DodgeBackward,
	"left":     remap.DodgeLeft,
	"right":    remap.DodgeRight,
}

var limitByName = map[string]remap.LimitAction{
	"reset":     remap.LimitReset,
	"toggle":    remap.LimitToggle,
	"increment": remap.LimitIncrement,
	"decrement": remap.LimitDecrement,
}

func resolveBind(key string, scancode uint16, mouse string) (remap.Bind, error) {
	set := 0
	if key != "" {
		set++
	}
	if scancode != 0 {
		set++
	}
	if mouse != "" {
		set++
	}
	if set != 1 {
		return remap.Bind{}, fmt.Errorf("exactly one of key, scancode or mouse must be set")
	}

	switch {
	case key != "":
		code, ok := keyCodeByName[strings.ToLower(key)]
		if !ok {
			return remap.Bind{}, fmt.Errorf("unknown key name %q", key)
		}
		return remap.KeyBind(code), nil
	case scancode != 0:
		return remap.KeyBind(scancode), nil
	default:
		button, ok := mouseButtonByName[strings.ToLower(mouse)]
		if !ok {
			return remap.Bind{}, fmt.Errorf("unknown mouse button %q", mouse)
		}
		return remap.MouseBind(button), nil
	}
}

func resolveAction(entry BindEntry) (remap.ControllerAction, error) {
	set := 0
	if entry.Button != "" {
		set++
	}
	if entry.Trigger != "" {
		set++
	}
	if entry.Analog != nil {
		set++
	}
	if set != 1 {
		return remap.ControllerAction{}, fmt.Errorf("exactly one of button, trigger or analog must be set")
	}

	switch {
	case entry.Button != "":
		mask, ok := xbox360.ButtonByName[strings.ToLower(entry.Button)]
		if !ok {
			return remap.ControllerAction{}, fmt.Errorf("unknown button %q", entry.Button)
		}
		return remap.ControllerAction{Kind: remap.ActionButton, Button: mask}, nil
	case entry.Trigger != "":
		switch strings.ToLower(entry.Trigger) {
		case "left":
			return remap.ControllerAction{Kind: remap.ActionLeftTrigger}, nil
		case "right":
			return remap.ControllerAction{Kind: remap.ActionRightTrigger}, nil
		}
		return remap.ControllerAction{}, fmt.Errorf("unknown trigger %q (want left or right)", entry.Trigger)
	default:
		return remap.ControllerAction{Kind: remap.ActionAnalog, X: entry.Analog.X, Y: entry.Analog.Y}, nil
	}
}
