// Package risk classifies the impact of a change to the SOP graph into four
// ordinal bands using a weighted point score.
package risk

import (
	"fmt"
	"strings"
)

type Level string

const (
	Low      Level = "LOW"
	Medium   Level = "MEDIUM"
	High     Level = "HIGH"
	Critical Level = "CRITICAL"
)

// Levels lists every band in ascending order.
var Levels = []Level{Low, Medium, High, Critical}

var ranks = map[Level]int{
	Low:      0,
	Medium:   1,
	High:     2,
	Critical: 3,
}

func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := ranks[l]; !ok {
		return "", fmt.Errorf("invalid risk level %q: must be one of low, medium, high, critical", s)
	}
	return l, nil
}

// Rank returns the ordinal position of l. Unknown levels rank below Low.
func (l Level) Rank() int {
	if r, ok := ranks[l]; ok {
		return r
	}
	return -1
}

func (l Level) Exceeds(threshold Level) bool {
	return l.Rank() > threshold.Rank()
}

func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}

func (l Level) Lower() string {
	return strings.ToLower(string(l))
}

// FanOutLevel bands a single node by how many documents use it directly.
// Any strong dependent lifts a small fan-out to Medium.
func FanOutLevel(direct int, strong bool) Level {
	switch {
	case direct == 0:
		return Low
	case direct <= 2 && !strong:
		return Low
	case direct <= 5 || strong:
		return Medium
	case direct <= 10:
		return High
	default:
		return Critical
	}
}
