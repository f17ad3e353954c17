// Package viz renders analysis results in the terminal.
//
//   - [Report]: styled table of the fitted coefficients and validation metrics
//   - [CumulativeFluxPlot], [FluxPlot], [ProfilePlot]: ASCII charts
//   - [Viewer]: Bubble Tea model paging between the report and the charts
//
// Every function takes its [Theme] explicitly; there is no current theme.
//
// # Key Bindings
//
//	Tab/→/L       - Next page
//	Shift+Tab/←/H - Previous page
//	1-4           - Jump to page
//	Q             - Quit
package viz
