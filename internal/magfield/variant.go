package magfield

import (
	"fmt"
	"math"
)

// Variant is the external-field model selector (the model's kext parameter).
// Each variant consumes a different driver-parameter set, and the historical
// failure mode with this model family is silent: hand it a driver map with
// the wrong key names and it classifies garbage without complaint. The
// variant therefore owns both the exact wire key names and the fail-fast
// validation of the values behind them.
type Variant int

const (
	// VariantOPQuiet is the Olson-Pfitzer quiet-time model. No drivers.
	VariantOPQuiet Variant = 5
	// VariantT96 is the Tsyganenko 1996 model, the default here.
	VariantT96 Variant = 7
)

// ParseVariant validates a raw selector value from configuration.
func ParseVariant(selector int) (Variant, error) {
	switch v := Variant(selector); v {
	case VariantOPQuiet, VariantT96:
		return v, nil
	default:
		return 0, fmt.Errorf("unsupported external-field selector %d (supported: %d, %d)",
			selector, VariantOPQuiet, VariantT96)
	}
}

func (v Variant) String() string {
	switch v {
	case VariantOPQuiet:
		return "OP-quiet"
	case VariantT96:
		return "T96"
	default:
		return fmt.Sprintf("kext(%d)", int(v))
	}
}

// RequiredKeys returns the exact driver key names this variant reads from
// its input map, in the model's documented order.
func (v Variant) RequiredKeys() []string {
	switch v {
	case VariantT96:
		return []string{"Pdyn", "Dst", "ByIMF", "BzIMF"}
	default:
		return nil
	}
}

// Validate rejects driver parameters the variant cannot use: a NaN in any
// required field means the caller never set it (or propagated a data gap),
// and the model would quietly substitute nonsense.
func (v Variant) Validate(d DriverParameters) error {
	for _, key := range v.RequiredKeys() {
		val, err := d.value(key)
		if err != nil {
			return err
		}
		if math.IsNaN(val) {
			return fmt.Errorf("driver parameter %s required by %s is NaN", key, v)
		}
	}
	return nil
}

// Encode builds the wire driver map for this variant, emitting exactly the
// key names the model expects and nothing else.
func (v Variant) Encode(d DriverParameters) (map[string]float64, error) {
	if err := v.Validate(d); err != nil {
		return nil, err
	}
	keys := v.RequiredKeys()
	if len(keys) == 0 {
		return nil, nil
	}
	m := make(map[string]float64, len(keys))
	for _, key := range keys {
		val, err := d.value(key)
		if err != nil {
			return nil, err
		}
		m[key] = val
	}
	return m, nil
}

func (d DriverParameters) value(key string) (float64, error) {
	switch key {
	case "Pdyn":
		return d.Pdyn, nil
	case "Dst":
		return d.Dst, nil
	case "ByIMF":
		return d.ByIMF, nil
	case "BzIMF":
		return d.BzIMF, nil
	default:
		return 0, fmt.Errorf("unknown driver parameter key %q", key)
	}
}
