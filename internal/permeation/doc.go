// Package permeation defines the shared data model of a gas-permeation
// time-lag analysis.
//
// A run flows strictly forward through these records:
//
//   - [RawSample]: one measured row from the permeation cell
//   - [Sample]: a calibrated row (absolute pressure, flux, cumulative flux)
//   - [FitResult]: the steady-state line and the coefficients derived from it
//   - [Override]: a caller-chosen stabilisation window that bypasses detection
//
// All values are created fresh per run; nothing here is shared or mutated
// after construction.
//
// # Units
//
// Time in s, concentration readings in ppm, pressure in bar, temperature in
// °C, flow rate in ml/min, lengths in cm and gas volumes in cm³(STP).
package permeation
