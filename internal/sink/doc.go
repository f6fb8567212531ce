// Package sink persists suggestions to a spreadsheet tab and reads previously
// persisted scripts back for reprocessing.
//
// Writes are append-only. The first write into an empty tab lays down the
// header row; reads locate columns by header name so reordered or extended
// tabs keep working.
package sink
