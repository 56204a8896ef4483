package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Greater(t, c.Len(), 0)

	rec := c.Lookup("Tomato___Late_blight")
	assert.Equal(t, "Tomato Late Blight", rec.Disease)
	assert.Equal(t, SeverityHigh, rec.Severity)
	assert.Equal(t, []string{"Isolate the crop area", "Clean all farming tools"}, rec.NextSteps)

	healthy := c.Lookup("Apple___healthy")
	assert.Equal(t, SeverityLow, healthy.Severity)
}

func TestLookupUnknownLabelFallsBack(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	rec := c.Lookup("Grape___Black_rot")
	assert.Equal(t, "Grape   Black rot", rec.Disease)
	assert.Equal(t, SeverityUnknown, rec.Severity)
	assert.Contains(t, rec.Treatment, "agronomist")
	assert.NotEmpty(t, rec.NextSteps)
	assert.False(t, c.Has("Grape___Black_rot"))
}

func TestLookupDoesNotLeakSharedState(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	rec := c.Lookup("Tomato___Late_blight")
	rec.NextSteps[0] = "mutated"
	assert.Equal(t, "Isolate the crop area", c.Lookup("Tomato___Late_blight").NextSteps[0])

	fb := c.Lookup("x_y")
	fb.NextSteps[0] = "mutated"
	assert.NotEqual(t, "mutated", c.Lookup("x_y").NextSteps[0])
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"High":    SeverityHigh,
		"medium":  SeverityMedium,
		"LOW":     SeverityLow,
		"None":    SeverityLow,
		"unknown": SeverityUnknown,
	}
	for in, want := range tests {
		got, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSeverity("critical")
	assert.Error(t, err)
}

func TestParseRejectsBadEntries(t *testing.T) {
	_, err := Parse([]byte("a:\n  severity: High\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("a:\n  disease: A\n  severity: apocalyptic\n"))
	assert.Error(t, err)

	c, err := Parse([]byte("a:\n  disease: A\n"))
	require.NoError(t, err)
	assert.Equal(t, SeverityUnknown, c.Lookup("a").Severity)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
Rice___Blast:
  disease: Rice Blast
  severity: High
  treatment: Apply tricyclazole.
  affected_crops: Rice
  prevention: Balanced nitrogen.
  next_steps: [Drain field]
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Rice Blast", c.Lookup("Rice___Blast").Disease)
	assert.Equal(t, []string{"Other___label"}, c.Missing([]string{"Rice___Blast", "Other___label"}))

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
