// Package catalog maps classifier labels to disease metadata.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Severity is the urgency tier of a diagnosis.
type Severity string

const (
	SeverityHigh    Severity = "High"
	SeverityMedium  Severity = "Medium"
	SeverityLow     Severity = "Low"
	SeverityUnknown Severity = "Unknown"
)

// ParseSeverity is case-insensitive. "None" is treated as Low.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return SeverityHigh, nil
	case "medium":
		return SeverityMedium, nil
	case "low", "none":
		return SeverityLow, nil
	case "unknown":
		return SeverityUnknown, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseSeverity(node.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Record is the metadata shown for one label.
type Record struct {
	Disease       string   `yaml:"disease" json:"disease"`
	Severity      Severity `yaml:"severity" json:"severity"`
	Treatment     string   `yaml:"treatment" json:"treatment"`
	AffectedCrops string   `yaml:"affected_crops" json:"affectedCrops"`
	Prevention    string   `yaml:"prevention" json:"prevention"`
	NextSteps     []string `yaml:"next_steps" json:"nextSteps"`
}

const (
	fallbackTreatment  = "No curated guidance is available for this condition. Consult a local agronomist or extension officer for a confirmed diagnosis and treatment plan."
	fallbackCrops      = "Unknown"
	fallbackPrevention = "Monitor the plant closely and keep infected material away from healthy crops until the condition is confirmed."
)

var fallbackSteps = []string{
	"Photograph affected leaves for an expert",
	"Contact a local agronomist",
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	records map[string]Record
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from disk.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse builds a catalog from YAML keyed by label.
func Parse(raw []byte) (*Catalog, error) {
	records := map[string]Record{}
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for label, rec := range records {
		if rec.Disease == "" {
			return nil, fmt.Errorf("catalog entry %q has no disease name", label)
		}
		if rec.Severity == "" {
			rec.Severity = SeverityUnknown
			records[label] = rec
		}
	}
	return &Catalog{records: records}, nil
}

// Lookup returns the record for label. Labels without a curated entry get a
// synthesized record with Unknown severity, so a drift between the model's
// label list and the catalog never fails a request.
func (c *Catalog) Lookup(label string) Record {
	if rec, ok := c.records[label]; ok {
		rec.NextSteps = append([]string(nil), rec.NextSteps...)
		return rec
	}
	return Fallback(label)
}

// Has reports whether label has a curated entry.
func (c *Catalog) Has(label string) bool {
	_, ok := c.records[label]
	return ok
}

// Len is the number of curated entries.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Fallback builds the record used for uncurated labels.
func Fallback(label string) Record {
	return Record{
		Disease:       strings.ReplaceAll(label, "_", " "),
		Severity:      SeverityUnknown,
		Treatment:     fallbackTreatment,
		AffectedCrops: fallbackCrops,
		Prevention:    fallbackPrevention,
		NextSteps:     append([]string(nil), fallbackSteps...),
	}
}

// Missing returns the labels that have no curated entry.
func (c *Catalog) Missing(labels []string) []string {
	var missing []string
	for _, l := range labels {
		if !c.Has(l) {
			missing = append(missing, l)
		}
	}
	return missing
}
