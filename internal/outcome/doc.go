// Package outcome classifies compiler results and reports them.
//
// Classification is pure: it cleans up raw compiler messages and decides
// between success, warning and failure. Only the first error of a failed
// run is kept, since later errors are usually consequences of the first.
// The Reporter renders outcomes for a terminal using fatih/color.
package outcome
