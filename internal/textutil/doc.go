// Package textutil compares short texts by token overlap.
//
// Fingerprints are term-frequency vectors built from lowercased letter and
// digit runs of at least three runes, so accented scripts tokenize the same
// way as English ones. CosineSimilarity scores two fingerprints between 0
// (no shared terms) and 1 (identical term distribution).
package textutil
