package netw

import "fmt"

// UnitSystem maps user-facing units onto the SI values the solver works
// with internally.
type UnitSystem struct {
	Pressure    string `yaml:"pressure"`
	Temperature string `yaml:"temperature"`
	Enthalpy    string `yaml:"enthalpy"`
	MassFlow    string `yaml:"mass_flow"`
}

// DefaultUnits is bar, degree Celsius, kJ/kg and kg/s.
func DefaultUnits() UnitSystem {
	return UnitSystem{Pressure: "bar", Temperature: "C", Enthalpy: "kJ/kg", MassFlow: "kg/s"}
}

var pressureFactors = map[string]float64{
	"Pa":  1,
	"kPa": 1e3,
	"bar": 1e5,
	"psi": 6894.757,
	"atm": 101325,
}

var enthalpyFactors = map[string]float64{
	"J/kg":  1,
	"kJ/kg": 1e3,
	"MJ/kg": 1e6,
}

var massFlowFactors = map[string]float64{
	"kg/s": 1,
	"kg/h": 1.0 / 3600,
	"t/h":  1000.0 / 3600,
}

var volFlowFactors = map[string]float64{
	"m3/s": 1,
	"m3/h": 1.0 / 3600,
	"l/s":  1e-3,
}

// ToSI converts a value of the given property from unit to SI. Property
// keys are "m", "p", "h" and "T". An empty unit means the system default.
func (u UnitSystem) ToSI(prop string, val float64, unit string) (float64, error) {
	if unit == "" {
		unit = u.defaultUnit(prop)
	}
	switch prop {
	case "p":
		f, ok := pressureFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown pressure unit %q", unit)
		}
		return val * f, nil
	case "h":
		f, ok := enthalpyFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown enthalpy unit %q", unit)
		}
		return val * f, nil
	case "m":
		f, ok := massFlowFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown mass flow unit %q", unit)
		}
		return val * f, nil
	case "v":
		f, ok := volFlowFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown volumetric flow unit %q", unit)
		}
		return val * f, nil
	case "T", "Td_bp":
		return tempToSI(prop, val, unit)
	}
	return val, nil
}

// FromSI converts an SI value of the given property into unit.
func (u UnitSystem) FromSI(prop string, si float64, unit string) (float64, error) {
	if unit == "" {
		unit = u.defaultUnit(prop)
	}
	switch prop {
	case "p":
		f, ok := pressureFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown pressure unit %q", unit)
		}
		return si / f, nil
	case "h":
		f, ok := enthalpyFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown enthalpy unit %q", unit)
		}
		return si / f, nil
	case "m":
		f, ok := massFlowFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown mass flow unit %q", unit)
		}
		return si / f, nil
	case "v":
		f, ok := volFlowFactors[unit]
		if !ok {
			return 0, fmt.Errorf("netw: unknown volumetric flow unit %q", unit)
		}
		return si / f, nil
	case "T", "Td_bp":
		return tempFromSI(prop, si, unit)
	}
	return si, nil
}

func tempToSI(prop string, val float64, unit string) (float64, error) {
	// temperature differences scale without offset
	diff := prop == "Td_bp"
	switch unit {
	case "K":
		return val, nil
	case "C":
		if diff {
			return val, nil
		}
		return val + 273.15, nil
	case "F":
		if diff {
			return val / 1.8, nil
		}
		return (val-32)/1.8 + 273.15, nil
	}
	return 0, fmt.Errorf("netw: unknown temperature unit %q", unit)
}

func tempFromSI(prop string, si float64, unit string) (float64, error) {
	diff := prop == "Td_bp"
	switch unit {
	case "K":
		return si, nil
	case "C":
		if diff {
			return si, nil
		}
		return si - 273.15, nil
	case "F":
		if diff {
			return si * 1.8, nil
		}
		return (si-273.15)*1.8 + 32, nil
	}
	return 0, fmt.Errorf("netw: unknown temperature unit %q", unit)
}

func (u UnitSystem) defaultUnit(prop string) string {
	switch prop {
	case "p":
		return u.Pressure
	case "h":
		return u.Enthalpy
	case "m":
		return u.MassFlow
	case "v":
		return "m3/s"
	case "T", "Td_bp":
		return u.Temperature
	}
	return ""
}

// Unit returns the display unit for a property.
func (u UnitSystem) Unit(prop string) string { return u.defaultUnit(prop) }
