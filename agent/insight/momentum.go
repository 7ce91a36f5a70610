package insight

import (
	"sort"
	"time"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

const momentumWindow = 2 * time.Hour

type window struct {
	start      int64
	items      int
	engagement int
}

func (w window) velocity() float64 {
	return float64(w.items) + float64(w.engagement)/10
}

// Momentum measures how fast activity accelerates across two-hour windows,
// in [0, 1]. Fewer than three windows with dated items give 0.
func Momentum(items []contractx.ContentItem) float64 {
	byStart := map[int64]*window{}
	for _, it := range items {
		if it.Timestamp.IsZero() {
			continue
		}
		start := it.Timestamp.UTC().Truncate(momentumWindow).Unix()
		w, ok := byStart[start]
		if !ok {
			w = &window{start: start}
			byStart[start] = w
		}
		w.items++
		w.engagement += it.Likes + it.Retweets
	}
	if len(byStart) < 3 {
		return 0
	}

	windows := make([]window, 0, len(byStart))
	for _, w := range byStart {
		windows = append(windows, *w)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })

	total := 0.0
	for i := 2; i < len(windows); i++ {
		a1 := windows[i].velocity() - windows[i-1].velocity()
		a2 := windows[i-1].velocity() - windows[i-2].velocity()
		total += (a1 + a2) / 2
	}
	avg := total / float64(len(windows)-2)
	return clamp(avg/10, 0, 1)
}
