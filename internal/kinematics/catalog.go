package kinematics

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultRef is used when no train or an unknown train is requested.
const DefaultRef = "BR425"

//go:embed trains.yaml
var trainsYAML []byte

// Catalog is the set of known vehicle profiles keyed by ref.
type Catalog struct {
	trains map[string]Train
	refs   []string
}

type catalogFile struct {
	Trains []Train `yaml:"trains"`
}

// LoadCatalog parses a YAML catalog. It must contain the default train.
func LoadCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse train catalog: %w", err)
	}
	c := &Catalog{trains: make(map[string]Train, len(f.Trains))}
	for _, t := range f.Trains {
		if t.Ref == "" {
			return nil, fmt.Errorf("train catalog: entry %q without ref", t.Name)
		}
		if _, dup := c.trains[t.Ref]; dup {
			return nil, fmt.Errorf("train catalog: duplicate ref %q", t.Ref)
		}
		if t.MaxSpeed <= 0 || t.MassEmpty <= 0 || t.Torque <= 0 || t.Power <= 0 {
			return nil, fmt.Errorf("train catalog: %s: max_speed, mass_empty, torque and power must be positive", t.Ref)
		}
		c.trains[t.Ref] = t
		c.refs = append(c.refs, t.Ref)
	}
	if _, ok := c.trains[DefaultRef]; !ok {
		return nil, fmt.Errorf("train catalog: default train %s missing", DefaultRef)
	}
	sort.Strings(c.refs)
	return c, nil
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(trainsYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the train for ref. Empty or unknown refs yield the default
// train and ok=false.
func (c *Catalog) Lookup(ref string) (Train, bool) {
	if t, ok := c.trains[ref]; ok {
		return t, true
	}
	return c.trains[DefaultRef], false
}

// All lists the trains ordered by ref.
func (c *Catalog) All() []Train {
	out := make([]Train, 0, len(c.refs))
	for _, ref := range c.refs {
		out = append(out, c.trains[ref])
	}
	return out
}
