package railway

import "strings"

// Tags is the closed set of OSM keys the analyzer understands. Keys outside
// the schema are kept in Unrecognized so nothing is silently lost.
type Tags struct {
	Railway          string
	Maxspeed         string
	MaxspeedForward  string
	MaxspeedBackward string
	Operator         string
	TrafficMode      string // railway:traffic_mode
	Electrified      string
	Voltage          string
	Frequency        string
	Bridge           string
	Tunnel           string
	Embankment       string
	Cutting          string
	Service          string
	Usage            string
	Highspeed        string
	PZB              string // railway:pzb
	LZB              string // railway:lzb
	IMU              string // railway:imu
	ETCS             string // railway:etcs
	Selcab           string // railway:selcab

	Name        string
	Description string

	// relation keys
	Type  string
	Route string
	Ref   string
	From  string
	To    string

	Unrecognized map[string]string
}

var schema = map[string]func(*Tags) *string{
	"railway":              func(t *Tags) *string { return &t.Railway },
	"maxspeed":             func(t *Tags) *string { return &t.Maxspeed },
	"maxspeed:forward":     func(t *Tags) *string { return &t.MaxspeedForward },
	"maxspeed:backward":    func(t *Tags) *string { return &t.MaxspeedBackward },
	"operator":             func(t *Tags) *string { return &t.Operator },
	"railway:traffic_mode": func(t *Tags) *string { return &t.TrafficMode },
	"electrified":          func(t *Tags) *string { return &t.Electrified },
	"voltage":              func(t *Tags) *string { return &t.Voltage },
	"frequency":            func(t *Tags) *string { return &t.Frequency },
	"bridge":               func(t *Tags) *string { return &t.Bridge },
	"tunnel":               func(t *Tags) *string { return &t.Tunnel },
	"embankment":           func(t *Tags) *string { return &t.Embankment },
	"cutting":              func(t *Tags) *string { return &t.Cutting },
	"service":              func(t *Tags) *string { return &t.Service },
	"usage":                func(t *Tags) *string { return &t.Usage },
	"highspeed":            func(t *Tags) *string { return &t.Highspeed },
	"railway:pzb":          func(t *Tags) *string { return &t.PZB },
	"railway:lzb":          func(t *Tags) *string { return &t.LZB },
	"railway:imu":          func(t *Tags) *string { return &t.IMU },
	"railway:etcs":         func(t *Tags) *string { return &t.ETCS },
	"railway:selcab":       func(t *Tags) *string { return &t.Selcab },
	"name":                 func(t *Tags) *string { return &t.Name },
	"description":          func(t *Tags) *string { return &t.Description },
	"type":                 func(t *Tags) *string { return &t.Type },
	"route":                func(t *Tags) *string { return &t.Route },
	"ref":                  func(t *Tags) *string { return &t.Ref },
	"from":                 func(t *Tags) *string { return &t.From },
	"to":                   func(t *Tags) *string { return &t.To },
}

// ParseTags routes raw key/value pairs into the schema. Keys are matched
// case-insensitively; lat and lon are coordinates, not tags, and are dropped.
func ParseTags(raw map[string]string) Tags {
	var t Tags
	for k, v := range raw {
		t.Set(k, v)
	}
	return t
}

// Set assigns a single key. Later values for the same key overwrite earlier ones.
func (t *Tags) Set(key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || key == "lat" || key == "lon" {
		return
	}
	if field, ok := schema[key]; ok {
		*field(t) = value
		return
	}
	if t.Unrecognized == nil {
		t.Unrecognized = make(map[string]string)
	}
	t.Unrecognized[key] = value
}

// Lookup returns the value stored for key, recognized or not.
func (t Tags) Lookup(key string) (string, bool) {
	key = strings.ToLower(key)
	if field, ok := schema[key]; ok {
		v := *field(&t)
		return v, v != ""
	}
	v, ok := t.Unrecognized[key]
	return v, ok
}

// IsRailTrack reports whether the way carries one of the railway
// classifications a train can run on.
func (t Tags) IsRailTrack() bool {
	switch t.Railway {
	case "rail", "light_rail", "tram", "narrow_gauge", "subway":
		return true
	}
	return false
}

func (t Tags) IsServiceTrack() bool { return t.Service != "" }

// HasTrainProtection reports point or continuous train protection typical
// for tram and subway lines (PZB, LZB, AVG-IMU).
func (t Tags) HasTrainProtection() bool {
	return t.PZB == "yes" || t.LZB == "yes" || t.IMU == "yes"
}

// HasHighSpeedProtection reports systems that allow main lines above 160 km/h.
func (t Tags) HasHighSpeedProtection() bool {
	return t.LZB == "yes" || (t.ETCS != "" && t.ETCS != "no") || t.Selcab == "yes"
}

// Structures lists the civil structure kinds the way is tagged with, in a
// fixed order.
func (t Tags) Structures() []string {
	var kinds []string
	for _, s := range []struct{ kind, value string }{
		{"bridge", t.Bridge},
		{"tunnel", t.Tunnel},
		{"embankment", t.Embankment},
		{"cutting", t.Cutting},
	} {
		if present(s.value) {
			kinds = append(kinds, s.kind)
		}
	}
	return kinds
}

// present reports a tag that is set and not explicitly negated.
func present(v string) bool { return v != "" && v != "no" }
