// Package fluid provides the thermophysical property backend for the
// network solver. Gaseous fluids use ideal-gas models with polynomial
// heat capacities, condensable fluids add a saturation curve so that
// vapor-quality and subcooling equations can be posed. All properties
// are evaluated in SI units (Pa, J/kg, K, m3/kg).
package fluid
