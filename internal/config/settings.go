package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrUnknownSetting is returned for a settings key that cannot be overridden.
var ErrUnknownSetting = errors.New("unknown setting")

// tunables maps the runtime-overridable keys to their fields.
func (c *Config) tunables() map[string]*float64 {
	return map[string]*float64{
		"gesture.window":      &c.Gesture.Window,
		"gesture.pitch":       &c.Gesture.Pitch,
		"gesture.yaw":         &c.Gesture.Yaw,
		"gesture.roll":        &c.Gesture.Roll,
		"expression.window":   &c.Expression.Window,
		"expression.smile":    &c.Expression.Smile,
		"expression.eyebrow":  &c.Expression.Eyebrow,
		"expression.mouth":    &c.Expression.Mouth,
		"expression.cooldown": &c.Expression.Cooldown,
	}
}

// SettingKeys returns the keys accepted by ApplySettings, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, 9)
	for k := range (&Config{}).tunables() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Settings returns the current tunable values as strings.
func (c *Config) Settings() map[string]string {
	out := make(map[string]string)
	for k, p := range c.tunables() {
		out[k] = strconv.FormatFloat(*p, 'f', -1, 64)
	}
	return out
}

// ApplySettings overlays stored overrides on the configuration. Either every
// value is applied and the result validates, or c is left unchanged.
func (c *Config) ApplySettings(settings map[string]string) error {
	next := *c
	fields := next.tunables()

	for key, raw := range settings {
		p, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		*p = v
	}

	next.applyVariantDefaults()
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ValidateSetting checks a single key and value without applying it.
func ValidateSetting(key, value string) error {
	scratch := Default()
	scratch.applyVariantDefaults()
	return scratch.ApplySettings(map[string]string{key: value})
}
