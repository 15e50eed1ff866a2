package audio

import (
	"fmt"
	"sync/atomic"
)

// Props stores device configuration that can be updated without locks. All properties
// should be registered before any reads take place.
type Props struct {
	properties map[string]*atomic.Value
	setters    map[string]setter
}

func NewProps() *Props {
	return &Props{
		properties: make(map[string]*atomic.Value),
		setters:    make(map[string]setter),
	}
}

// Set updates the property with value. The key has to be registered first using Register.
func (p *Props) Set(key string, value interface{}) error {
	prop, ok := p.properties[key]
	if !ok {
		return fmt.Errorf("unknown property %s", key)
	}
	set, ok := p.setters[key]
	if !ok {
		return fmt.Errorf("unknown property %s", key)
	}
	if err := set(value, prop); err != nil {
		return fmt.Errorf("set property %s: %w", key, err)
	}
	return nil
}

func (p *Props) Get(key string) (interface{}, error) {
	prop, ok := p.properties[key]
	if !ok {
		return nil, fmt.Errorf("unknown property %s", key)
	}
	return prop.Load(), nil
}

// Register adds a new property.
func (p *Props) Register(key string, set setter, init interface{}) (*atomic.Value, error) {
	var prop atomic.Value
	p.properties[key] = &prop
	p.setters[key] = set
	return &prop, set(init, &prop)
}

// Keys lists the registered property names, for copying a device's state
// into a parallel instance (e.g. an offline render).
func (p *Props) Keys() []string {
	keys := make([]string, 0, len(p.properties))
	for key := range p.properties {
		keys = append(keys, key)
	}
	return keys
}

func (p *Props) MustRegister(key string, set setter, init interface{}) *atomic.Value {
	if prop, err := p.Register(key, set, init); err != nil {
		panic(err)
	} else {
		return prop
	}
}

type setter func(val interface{}, dest *atomic.Value) error

var setLevel = setFloat64(-40, 10)

func setFloat64(min, max float64) setter {
	return func(v interface{}, dest *atomic.Value) error {
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		default:
			return fmt.Errorf("value is not a float64: %v", v)
		}
		if f < min || f > max {
			return fmt.Errorf("property value is not in valid range %v - %v: %v", min, max, f)
		}
		dest.Store(f)
		return nil
	}
}

// setEnvelope validates an envelope config before publishing it. Voices
// pick up the new value on their next block; a rejected config leaves the
// previous one in place.
func setEnvelope(v interface{}, dest *atomic.Value) error {
	var cfg Config
	switch c := v.(type) {
	case Config:
		cfg = c
	case *Config:
		cfg = *c
	default:
		return fmt.Errorf("value is not an envelope config: %v", v)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	dest.Store(&cfg)
	return nil
}
