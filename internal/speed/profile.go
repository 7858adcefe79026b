package speed

import (
	"sort"

	"github.com/rs/zerolog/log"

	"train-route-analyzer/internal/route"
)

// Segment is a stretch of track with a constant limit. Length is in km and
// Limit in km/h; a zero-length, zero-limit segment is a standstill.
type Segment struct {
	Length float64
	Limit  float64
	Exact  bool
}

// IsStandstill reports a stop or the terminal sentinel.
func (s Segment) IsStandstill() bool { return s.Length == 0 && s.Limit == 0 }

// Profile is an ordered list of segments ending with a standstill sentinel.
type Profile []Segment

// Distance sums the segment lengths.
func (p Profile) Distance() float64 {
	var d float64
	for _, s := range p {
		d += s.Length
	}
	return d
}

// MaxLimit is the highest limit anywhere on the profile.
func (p Profile) MaxLimit() float64 {
	var m float64
	for _, s := range p {
		if s.Limit > m {
			m = s.Limit
		}
	}
	return m
}

// BuildProfile classifies every way and merges neighbours with the same limit
// and exactness into one segment. The result always ends with the sentinel.
func BuildProfile(ways []route.RouteWay, vmax float64) Profile {
	var (
		p    Profile
		open Segment
		has  bool
	)
	for _, w := range ways {
		l := Classify(w.Way, w.Direction, vmax)
		switch {
		case !has:
			open, has = Segment{Length: w.Length, Limit: l.Value, Exact: l.Exact}, true
		case open.Limit == 0:
			// a zero limit never closes; its length moves into the next segment
			open = Segment{Length: open.Length + w.Length, Limit: l.Value, Exact: l.Exact}
		case open.Limit != l.Value || open.Exact != l.Exact:
			p = append(p, open)
			open = Segment{Length: w.Length, Limit: l.Value, Exact: l.Exact}
		default:
			open.Length += w.Length
		}
	}
	if has {
		p = append(p, open)
	}
	return append(p, Segment{})
}

// InsertStops splits the segments containing a stop into the stretch before
// the stop, a standstill, and the rest. Stops without a route distance are
// ignored. A stop exactly on a boundary belongs to the segment it ends.
func InsertStops(p Profile, stops []route.Stop) Profile {
	located := route.Located(stops)
	sort.SliceStable(located, func(i, j int) bool { return located[i].Distance < located[j].Distance })

	out := make(Profile, 0, len(p)+2*len(located))
	var consumed float64
	for _, seg := range p {
		remaining := seg.Length
		for _, s := range located {
			if s.Distance <= consumed || s.Distance > consumed+seg.Length {
				continue
			}
			pre := s.Distance - consumed - (seg.Length - remaining)
			if pre < 0 {
				log.Debug().Float64("distance", s.Distance).Float64("remainder", pre).Msg("clamped negative stop remainder")
				pre = 0
			}
			out = append(out,
				Segment{Length: pre, Limit: seg.Limit, Exact: seg.Exact},
				Segment{Exact: true},
			)
			remaining -= pre
			if remaining < 0 {
				remaining = 0
			}
		}
		out = append(out, Segment{Length: remaining, Limit: seg.Limit, Exact: seg.Exact})
		consumed += seg.Length
	}
	return out
}
