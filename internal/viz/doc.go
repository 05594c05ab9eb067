// Package viz renders run results for the terminal.
//
// Charts are drawn with asciigraph: one line per compartment or per result
// function, colored by the current [Theme]. Styled text helpers (progress
// bars, sparklines, status labels) are shared with the live view.
package viz
