package creative

import "math"

// Group identifies which instructions a suggestion slot is generated under.
type Group int

const (
	// GroupClose slots follow the winning patterns in the scored corpus.
	GroupClose Group = iota
	// GroupExperimental slots deliberately diverge from those patterns.
	GroupExperimental
)

func (g Group) String() string {
	if g == GroupExperimental {
		return "experimental"
	}
	return "close"
}

// SplitCounts divides count into close and experimental slots. The close share
// is round(count*(1-ratio)), with halves rounded away from zero.
func SplitCounts(count int, ratio float64) (closeCount, experimental int) {
	if count <= 0 {
		return 0, 0
	}
	ratio = math.Max(0, math.Min(1, ratio))
	// The epsilon keeps products such as 5*0.7 (3.4999999999999996) rounding as 3.5 would.
	closeCount = int(math.Round(float64(count)*(1-ratio) + 1e-9))
	closeCount = max(0, min(count, closeCount))
	return closeCount, count - closeCount
}

// GroupFor returns the group of slot index for a request of count items. The
// close slots come first.
func GroupFor(index, count int, ratio float64) Group {
	closeCount, _ := SplitCounts(count, ratio)
	if index < closeCount {
		return GroupClose
	}
	return GroupExperimental
}
