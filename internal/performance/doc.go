// Package performance reads historical scripts and their scores from a
// spreadsheet tab so the generator can learn from what worked.
package performance
