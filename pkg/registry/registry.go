package registry

import (
	_ "embed"
	"fmt"
	"math/rand/v2"

	"github.com/goccy/go-yaml"

	"neurovision/pkg/models"
)

// DefaultRegionID is the fallback record used for unknown or empty ids.
const DefaultRegionID = "default"

// named regions in the order the visualization flags them
var namedRegions = []string{
	"frontal_lobe",
	"temporal_lobe",
	"parietal_lobe",
	"occipital_lobe",
	"cerebellum",
	"brain_stem",
	"hypothalamus",
	"amygdala",
	"hippocampus",
	"thalamus",
}

//go:embed regions.yaml
var regionsYAML []byte

// Registry maps region identifiers to finding records. It is read-only after Load.
type Registry struct {
	records map[string]models.FindingRecord
	regions []string
}

var std = mustLoad(regionsYAML)

// Default returns the process-wide registry built from the embedded data file.
func Default() *Registry { return std }

// Lookup returns the record for regionID from the default registry.
func Lookup(regionID string) models.FindingRecord { return std.Lookup(regionID) }

// Regions returns the named region ids of the default registry.
func Regions() []string { return std.Regions() }

func mustLoad(data []byte) *Registry {
	r, err := Load(data)
	if err != nil {
		panic(fmt.Sprintf("registry: embedded regions.yaml: %v", err))
	}
	return r
}

// Load parses a registry data file. The file must define a record for every
// named region plus the default record.
func Load(data []byte) (*Registry, error) {
	raw := map[string]models.FindingRecord{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}
	records := make(map[string]models.FindingRecord, len(raw))
	for id, rec := range raw {
		rec.RegionID = id
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
		records[id] = rec
	}
	if _, ok := records[DefaultRegionID]; !ok {
		return nil, fmt.Errorf("missing %q record", DefaultRegionID)
	}
	for _, id := range namedRegions {
		if _, ok := records[id]; !ok {
			return nil, fmt.Errorf("missing record for region %q", id)
		}
	}
	return &Registry{records: records, regions: append([]string(nil), namedRegions...)}, nil
}

func validateRecord(rec models.FindingRecord) error {
	switch {
	case rec.ConditionName == "":
		return fmt.Errorf("region %q: empty conditionName", rec.RegionID)
	case rec.Classification == "":
		return fmt.Errorf("region %q: empty classification", rec.RegionID)
	case !rec.Severity.Valid():
		return fmt.Errorf("region %q: unknown severity %q", rec.RegionID, rec.Severity)
	case len(rec.Symptoms) == 0:
		return fmt.Errorf("region %q: no symptoms", rec.RegionID)
	case len(rec.Recommendations) == 0:
		return fmt.Errorf("region %q: no recommendations", rec.RegionID)
	}
	return nil
}

// Lookup returns the record for regionID, or the default record when the id
// is empty or unknown. It never fails.
func (r *Registry) Lookup(regionID string) models.FindingRecord {
	if rec, ok := r.records[regionID]; ok {
		return rec.Clone()
	}
	return r.records[DefaultRegionID].Clone()
}

// Has reports whether regionID has its own record (default included).
func (r *Registry) Has(regionID string) bool {
	_, ok := r.records[regionID]
	return ok
}

// Regions returns the named region ids, excluding the default record.
func (r *Registry) Regions() []string {
	return append([]string(nil), r.regions...)
}

// RandomRegion picks one of the named regions uniformly. A nil src uses the
// global generator. The default record is never returned.
func (r *Registry) RandomRegion(src *rand.Rand) string {
	if src == nil {
		return r.regions[rand.IntN(len(r.regions))]
	}
	return r.regions[src.IntN(len(r.regions))]
}
