package schedule

import (
	"slices"
	"sort"

	"github.com/rs/zerolog/log"
)

// maxStepDown bounds the search for a lower peak between a start from rest
// and the following stop.
const maxStepDown = 64

// Reconcile resolves overlapping events until a pass changes nothing. The
// number of passes is bounded; hitting the bound is logged and the last state
// returned.
func Reconcile(events []Event) []Event {
	out := slices.Clone(events)
	limit := 4*len(out) + 8
	for pass := 0; pass < limit; pass++ {
		before := slices.Clone(out)
		reconcilePass(out)
		if slices.Equal(before, out) {
			return out
		}
	}
	log.Warn().Int("events", len(out)).Int("passes", limit).Msg("event reconciliation did not settle")
	return out
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		switch {
		case a.Start != b.Start:
			return a.Start < b.Start
		case a.End != b.End:
			return a.End < b.End
		case a.StartSpeed != b.StartSpeed:
			return a.StartSpeed < b.StartSpeed
		case a.EndSpeed != b.EndSpeed:
			return a.EndSpeed < b.EndSpeed
		}
		return a.Kind < b.Kind
	})
}

func reconcilePass(events []Event) {
	sortEvents(events)
	for i := 0; i+1 < len(events); i++ {
		a, b := &events[i], &events[i+1]

		if b.Start > a.Start && b.End < a.End {
			b.clear()
		}

		if b.Start < a.End {
			switch {
			case a.Kind == Accelerate && b.Kind == Brake:
				resolveAccelBrake(a, b)
			case a.Kind == Brake && b.Kind == Brake:
				*b = Event{Start: a.End, End: a.End, StartSpeed: a.EndSpeed, EndSpeed: a.EndSpeed, Kind: Brake}
			}
		}

		if b.StartSpeed > a.EndSpeed && a.EndSpeed != 0 {
			b.StartSpeed = a.EndSpeed
		}
	}
}

func resolveAccelBrake(a, b *Event) {
	switch {
	case b.EndSpeed == a.EndSpeed:
		// the brake is not needed
		b.Start, b.End = a.End, a.End
		b.StartSpeed = b.EndSpeed

	case b.EndSpeed > a.StartSpeed:
		// accelerate only up to the brake target
		a.EndSpeed = b.EndSpeed
		mid := (b.End + a.Start) / 2
		a.End, b.Start = mid, mid
		b.StartSpeed = a.EndSpeed

	case b.EndSpeed < a.StartSpeed && b.EndSpeed != b.StartSpeed:
		// no acceleration; brake from the current speed instead
		a.End, a.EndSpeed = a.Start, a.StartSpeed
		b.Start = b.End - rescale(b.End-b.Start, b.EndSpeed-a.StartSpeed, b.EndSpeed-b.StartSpeed)
		b.StartSpeed = a.StartSpeed

	case b.EndSpeed == a.StartSpeed:
		if a.StartSpeed != 0 {
			b.clear()
			a.Start, a.EndSpeed = a.End, a.StartSpeed
			return
		}
		if a.EndSpeed != 0 && b.StartSpeed != 0 {
			stepDown(a, b)
		}
	}
}

// stepDown lowers the peak between a start from rest and the following brake
// to 80 % at a time until the two no longer overlap.
func stepDown(a, b *Event) {
	for n := 0; b.Start < a.End; n++ {
		if n == maxStepDown {
			log.Debug().Float64("start", a.Start).Float64("end", b.End).Msg("no peak fits between start and stop")
			a.End, a.EndSpeed = a.Start, a.StartSpeed
			b.clear()
			return
		}
		peak := 0.8 * a.EndSpeed
		a.End = a.Start + rescale(a.End-a.Start, peak, a.EndSpeed)
		a.EndSpeed = peak
		b.Start = b.End - rescale(b.End-b.Start, peak, b.StartSpeed)
		b.StartSpeed = peak
	}
}

// rescale returns the length s1 for a speed change v1 when s2 covers v2.
func rescale(s2, v1, v2 float64) float64 {
	return s2 * v1 / v2
}
