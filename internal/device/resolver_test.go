package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(names ...string) []Record {
	out := make([]Record, len(names))
	for i, n := range names {
		out[i] = Record{UUID: "uuid-" + n, Name: n, Type: "mss110", Online: true}
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		names     []string
		query     string
		wantIndex int
		wantTier  Tier
	}{
		{"exact beats substring", []string{"Bedroom", "Bedroom Light"}, "bedroom", 0, TierExact},
		{"exact beats earlier substring", []string{"Bedroom Light", "Bedroom"}, "BEDROOM", 1, TierExact},
		{"candidate contains query", []string{"Kitchen", "Desk Lamp"}, "lamp", 1, TierSubstring},
		{"query contains candidate", []string{"Kitchen", "Desk Lamp"}, "the desk lamp please", 1, TierSubstring},
		{"token overlap", []string{"Kitchen Light", "Bedroom"}, "turn on the light", 0, TierToken},
		{"token overlap first in list", []string{"Porch Light", "Kitchen Light"}, "switch the light", 0, TierToken},
		{"short tokens ignored", []string{"TV Box"}, "tv on", -1, TierNone},
		{"short tokens counted in characters", []string{"Кухня", "Лампа Да"}, "вкл да", -1, TierNone},
		{"non-ascii token overlap", []string{"Кухня", "Лампа Спальня"}, "включи лампа", 1, TierToken},
		{"no match", []string{"Kitchen", "Bedroom"}, "garage heater", -1, TierNone},
		{"blank query", []string{"Kitchen"}, "   ", -1, TierNone},
		{"blank candidate never substring matches", []string{"", "Heater"}, "heater", 1, TierExact},
		{"blank candidate skipped for substring", []string{" ", "Space Heater"}, "heater", 1, TierSubstring},
		{"empty list", nil, "anything", -1, TierNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, tier := Match(tt.names, tt.query)
			assert.Equal(t, tt.wantIndex, idx)
			assert.Equal(t, tt.wantTier, tier)
		})
	}
}

func TestResolve_ExactWinsRegardlessOfOrder(t *testing.T) {
	r := Resolver{}
	for _, devices := range [][]Record{
		records("Bedroom", "Bedroom Light"),
		records("Bedroom Light", "Bedroom"),
	} {
		res, err := r.Resolve("bedroom", devices)
		require.NoError(t, err)
		assert.Equal(t, "Bedroom", res.Device.Name)
		assert.Equal(t, TierExact, res.Tier)
	}
}

func TestResolve_EmptyQueryUsesDefault(t *testing.T) {
	r := Resolver{DefaultName: "living room"}
	res, err := r.Resolve("", records("Kitchen", "Living Room"))
	require.NoError(t, err)
	assert.Equal(t, "Living Room", res.Device.Name)
	assert.Equal(t, TierDefault, res.Tier)
}

func TestResolve_UnmatchedQueryUsesDefault(t *testing.T) {
	r := Resolver{DefaultName: "Living Room"}
	res, err := r.Resolve("garage", records("Kitchen", "Living Room"))
	require.NoError(t, err)
	assert.Equal(t, "Living Room", res.Device.Name)
	assert.Equal(t, TierDefault, res.Tier)
}

func TestResolve_FallsBackToFirst(t *testing.T) {
	tests := map[string]Resolver{
		"no default configured": {},
		"default not present":   {DefaultName: "Living Room"},
	}
	for name, r := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := r.Resolve("", records("Kitchen", "Bedroom"))
			require.NoError(t, err)
			assert.Equal(t, "Kitchen", res.Device.Name)
			assert.Equal(t, TierFirst, res.Tier)
		})
	}
}

func TestResolve_NoDevices(t *testing.T) {
	r := Resolver{DefaultName: "Living Room"}
	for _, q := range []string{"", "kitchen", "Living Room"} {
		_, err := r.Resolve(q, nil)
		assert.ErrorIs(t, err, ErrNoDevices, "query %q", q)
	}
}

func TestResolve_TypeFilter(t *testing.T) {
	devices := []Record{
		{UUID: "1", Name: "Kitchen Light", Type: "msl120"},
		{UUID: "2", Name: "Kettle", Type: "mss110"},
	}
	r := Resolver{TypeFilter: "mss110"}

	res, err := r.Resolve("kitchen light", devices)
	require.NoError(t, err)
	assert.Equal(t, "2", res.Device.UUID, "filtered device must not be selected")
	assert.Equal(t, TierFirst, res.Tier)

	_, err = Resolver{TypeFilter: "mss310"}.Resolve("kettle", devices)
	assert.ErrorIs(t, err, ErrNoDevices)
}

func TestByUUID(t *testing.T) {
	devices := records("Kitchen", "Bedroom")

	d, ok := ByUUID(devices, "uuid-Bedroom")
	assert.True(t, ok)
	assert.Equal(t, "Bedroom", d.Name)

	_, ok = ByUUID(devices, "missing")
	assert.False(t, ok)
}
