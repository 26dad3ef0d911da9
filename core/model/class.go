package model

import "fmt"

// VehicleClass defines how a vehicle is powered.
type VehicleClass int

const (
	Electric VehicleClass = iota
	Combustion
)

// String returns a human-readable representation of the class.
func (c VehicleClass) String() string {
	switch c {
	case Electric:
		return "electric"
	case Combustion:
		return "combustion"
	default:
		return "unknown"
	}
}

// ParseVehicleClass converts a configuration string into a VehicleClass.
func ParseVehicleClass(s string) (VehicleClass, error) {
	switch s {
	case "electric", "ev":
		return Electric, nil
	case "combustion", "ice":
		return Combustion, nil
	default:
		return 0, fmt.Errorf("unknown vehicle class %q", s)
	}
}

// MarshalText encodes the class as its string form.
func (c VehicleClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a class from its string form.
func (c *VehicleClass) UnmarshalText(b []byte) error {
	v, err := ParseVehicleClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
