// Package shipping resolves flat delivery fees from a static country/region table.
package shipping

import (
	_ "embed"
	"fmt"

	"go.yaml.in/yaml/v3"
)

const (
	DefaultCost   = 15.0
	FreeThreshold = 500.0
)

//go:embed rates.yaml
var defaultRates []byte

type Region struct {
	Name string  `yaml:"name" json:"name"`
	Cost float64 `yaml:"cost" json:"cost"`
}

type Country struct {
	Name    string   `yaml:"name" json:"name"`
	Regions []Region `yaml:"regions" json:"regions"`
}

// FallbackReason explains why a quote is an estimate.
type FallbackReason string

const (
	ReasonNone           FallbackReason = ""
	ReasonUnknownCountry FallbackReason = "UNKNOWN_COUNTRY"
	ReasonUnknownRegion  FallbackReason = "UNKNOWN_REGION"
	ReasonNoRegions      FallbackReason = "NO_REGIONS"
)

// Quote is a resolved fee. Estimate is set whenever the table had no exact match
// and a fallback fee was used.
type Quote struct {
	Cost     float64        `json:"cost"`
	Free     bool           `json:"free"`
	Estimate bool           `json:"estimate"`
	Reason   FallbackReason `json:"reason,omitempty"`
}

// Table is immutable once loaded.
type Table struct {
	freeThreshold float64
	defaultCost   float64
	countries     []Country
	index         map[string]int
}

type tableFile struct {
	FreeThreshold float64   `yaml:"free_threshold"`
	DefaultCost   float64   `yaml:"default_cost"`
	Countries     []Country `yaml:"countries"`
}

// Parse builds a table from its YAML form.
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing shipping rates: %w", err)
	}
	if f.FreeThreshold <= 0 {
		f.FreeThreshold = FreeThreshold
	}
	if f.DefaultCost <= 0 {
		f.DefaultCost = DefaultCost
	}

	t := &Table{
		freeThreshold: f.FreeThreshold,
		defaultCost:   f.DefaultCost,
		countries:     f.Countries,
		index:         make(map[string]int, len(f.Countries)),
	}
	for i, c := range f.Countries {
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate country %q in shipping rates", c.Name)
		}
		t.index[c.Name] = i
	}
	return t, nil
}

// Default returns the embedded table. It panics on a malformed embed, which is a
// build defect rather than a runtime condition.
func Default() *Table {
	t, err := Parse(defaultRates)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) FreeThreshold() float64 {
	return t.freeThreshold
}

// Countries returns a copy of the table for rendering country/region pickers.
func (t *Table) Countries() []Country {
	out := make([]Country, len(t.countries))
	for i, c := range t.countries {
		regions := make([]Region, len(c.Regions))
		copy(regions, c.Regions)
		out[i] = Country{Name: c.Name, Regions: regions}
	}
	return out
}

// Quote resolves the fee for a destination and order subtotal. It never fails:
// unknown destinations fall back to a default and are flagged as estimates.
func (t *Table) Quote(country, region string, subtotal float64) Quote {
	if subtotal >= t.freeThreshold {
		return Quote{Cost: 0, Free: true}
	}

	i, ok := t.index[country]
	if !ok {
		return Quote{Cost: t.defaultCost, Estimate: true, Reason: ReasonUnknownCountry}
	}

	regions := t.countries[i].Regions
	for _, r := range regions {
		if r.Name == region {
			return Quote{Cost: r.Cost}
		}
	}

	if len(regions) == 0 {
		return Quote{Cost: t.defaultCost, Estimate: true, Reason: ReasonNoRegions}
	}
	return Quote{Cost: regions[0].Cost, Estimate: true, Reason: ReasonUnknownRegion}
}

// Cost is Quote without the fallback metadata.
func (t *Table) Cost(country, region string, subtotal float64) float64 {
	return t.Quote(country, region, subtotal).Cost
}

func (t *Table) HasCountry(name string) bool {
	_, ok := t.index[name]
	return ok
}
