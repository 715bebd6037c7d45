// Package netw holds the network model: components joined by connections
// carrying a fluid state vector, energy busses, and the Newton solver that
// drives the coupled equation system to a steady state.
//
// Every connection contributes the variables mass flow, pressure and
// enthalpy, plus one mass fraction per network fluid when the network
// carries a mixture. Components, connection specifications and busses
// contribute equations. The solver assembles all residuals and partial
// derivatives into one dense system and iterates Newton steps until the
// residual norm drops below tolerance.
package netw
