package fgc

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string, base *Model) *Model {
	t.Helper()
	m, err := Parse(strings.NewReader(text), base)
	require.NoError(t, err)
	return m
}

func TestSerializeDefaults(t *testing.T) {
	out := string(Marshal(New(), false))
	lines := strings.Split(strings.TrimSpace(out), "\n")

	want := []string{
		"SEIFGCEnabled                          : 1",
		"SEIFGCCancelFlag                       : 0",
		"SEIFGCPersistenceFlag                  : 1",
		"SEIFGCModelID                          : 0",
		"SEIFGCSepColourDescPresentFlag         : 0",
		"SEIFGCBlendingModeID                   : 0",
		"SEIFGCLog2ScaleFactor                  : 5",
		"SEIFGCCompModelPresentComp0            : 1",
		"SEIFGCCompModelPresentComp1            : 1",
		"SEIFGCCompModelPresentComp2            : 1",
		"SEIFGCNumIntensityIntervalMinus1Comp0  : 7",
		"SEIFGCNumIntensityIntervalMinus1Comp1  : 7",
		"SEIFGCNumIntensityIntervalMinus1Comp2  : 7",
		"SEIFGCNumModelValuesMinus1Comp0        : 2",
		"SEIFGCNumModelValuesMinus1Comp1        : 0",
		"SEIFGCNumModelValuesMinus1Comp2        : 0",
		"SEIFGCIntensityIntervalLowerBoundComp0 : 0 40 60 80 100 120 140 160",
		"SEIFGCIntensityIntervalLowerBoundComp1 : 0 64 96 112 128 144 160 192",
		"SEIFGCIntensityIntervalLowerBoundComp2 : 0 64 96 112 128 144 160 192",
		"SEIFGCIntensityIntervalUpperBoundComp0 : 39 59 79 99 119 139 159 255",
		"SEIFGCIntensityIntervalUpperBoundComp1 : 63 95 111 127 143 159 191 255",
		"SEIFGCIntensityIntervalUpperBoundComp2 : 63 95 111 127 143 159 191 255",
		"SEIFGCCompModelValuesComp0             : 100 7 7 100 8 8 100 9 9 110 10 10 120 11 11 135 12 12 145 13 13 180 14 14",
		"SEIFGCCompModelValuesComp1             : 128 96 64 64 64 64 96 128",
		"SEIFGCCompModelValuesComp2             : 128 96 64 64 64 64 96 128",
	}
	assert.Equal(t, want, lines)
}

func TestSerializeSkipsAbsentComponents(t *testing.T) {
	m := New()
	m.Comps[1].Present = false
	m.Comps[1].Intervals = nil
	out := string(Marshal(m, false))

	assert.Contains(t, out, "SEIFGCCompModelPresentComp1            : 0\n")
	assert.NotContains(t, out, "Comp1  :")
	assert.NotContains(t, out, "LowerBoundComp1")
	assert.Contains(t, out, "LowerBoundComp2")
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		edit func(m *Model)
	}{
		{name: "defaults", edit: func(m *Model) {}},
		{name: "split luma", edit: func(m *Model) { m.Split(0, 1, 50) }},
		{name: "split and disable", edit: func(m *Model) {
			m.Split(0, 7, 200)
			m.Split(1, 0, 10)
			m.Split(1, 0, 5)
			m.SetEnabled(0, 8, false)
			m.SetEnabled(2, 3, false)
		}},
		{name: "all disabled", edit: func(m *Model) {
			for k := range m.Comps[2].Intervals {
				m.SetEnabled(2, k, false)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			tt.edit(m)

			var buf bytes.Buffer
			require.NoError(t, Serialize(&buf, m, false))
			got := mustParse(t, buf.String(), New())

			assert.Equal(t, m, got)
		})
	}
}

func TestMaskedSerialization(t *testing.T) {
	m := New()
	require.Equal(t, 145, m.Comps[0].Intervals[6].Gain())
	require.True(t, m.SetEnabled(0, 6, false))

	masked := string(Marshal(m, true))
	saved := string(Marshal(m, false))

	assert.Contains(t, masked, "SEIFGCCompModelValuesComp0             : 100 7 7 100 8 8 100 9 9 110 10 10 120 11 11 135 12 12 0 13 13 180 14 14\n")
	assert.Contains(t, saved, "SEIFGCCompModelValuesComp0             : 100 7 7 100 8 8 100 9 9 110 10 10 120 11 11 135 12 12 145 13 13 180 14 14\n")
	assert.NotContains(t, masked, "FGCDesignerIntervalEnabled")
	assert.Contains(t, saved, "FGCDesignerIntervalEnabledComp0        : 1 1 1 1 1 1 0 1\n")

	// the model keeps its gain
	assert.Equal(t, 145, m.Comps[0].Intervals[6].Gain())
	assert.False(t, m.Comps[0].Intervals[6].Enabled)
}

func TestParseMissingKeysKeepBase(t *testing.T) {
	base := New()
	base.GlobalGain = 70
	base.Comps[0].Intervals[0].Values[0] = 11

	m := mustParse(t, "SEIFGCLog2ScaleFactor : 6\n", base)

	assert.Equal(t, 6, m.Log2ScaleFactor)
	assert.Equal(t, 70, m.GlobalGain)
	assert.Equal(t, 11, m.Comps[0].Intervals[0].Values[0])
	assert.Equal(t, 5, base.Log2ScaleFactor)
}

func TestParseKeepsEnabledFlags(t *testing.T) {
	base := New()
	require.True(t, base.SetEnabled(0, 2, false))
	require.True(t, base.SetEnabled(1, 0, false))

	m := mustParse(t, "SEIFGCLog2ScaleFactor : 4\n", base)
	assert.False(t, m.Comps[0].Intervals[2].Enabled)
	assert.False(t, m.Comps[1].Intervals[0].Enabled)
	assert.True(t, m.Comps[0].Intervals[1].Enabled)

	// new partition, no flags: everything is enabled again
	m = mustParse(t, "SEIFGCNumIntensityIntervalMinus1Comp0 : 0\n"+
		"SEIFGCIntensityIntervalLowerBoundComp0 : 0\n"+
		"SEIFGCIntensityIntervalUpperBoundComp0 : 255\n"+
		"SEIFGCCompModelValuesComp0 : 100 8 8\n", base)
	require.Len(t, m.Comps[0].Intervals, 1)
	assert.True(t, m.Comps[0].Intervals[0].Enabled)
	assert.False(t, m.Comps[1].Intervals[0].Enabled)
}

func TestParseSyntax(t *testing.T) {
	text := `
# film grain for clip 12
seifgcmodelid : 0   # frequency filtering
SEIFGCLOG2SCALEFACTOR:4
not a key value line
SEIFGCUnknownKey : whatever
SEIFGCNumIntensityIntervalMinus1Comp1 : 1
SEIFGCIntensityIntervalLowerBoundComp1 : 0 128
SEIFGCIntensityIntervalUpperBoundComp1 : 127 255
SEIFGCCompModelValuesComp1 : 20 +30
`
	m := mustParse(t, text, New())

	assert.Equal(t, 4, m.Log2ScaleFactor)
	require.Len(t, m.Comps[1].Intervals, 2)
	assert.Equal(t, Interval{Lower: 128, Upper: 255, Values: []int{30}, Enabled: true}, m.Comps[1].Intervals[1])
	assert.NoError(t, m.Validate())
}

func TestParseCountFromLowerBounds(t *testing.T) {
	text := "SEIFGCIntensityIntervalLowerBoundComp2 : 0 100\n" +
		"SEIFGCIntensityIntervalUpperBoundComp2 : 99 255\n" +
		"SEIFGCCompModelValuesComp2 : 5 6\n"
	m := mustParse(t, text, New())
	require.Len(t, m.Comps[2].Intervals, 2)
	assert.Equal(t, 99, m.Comps[2].Intervals[0].Upper)
}

func TestParseNumModelValuesChange(t *testing.T) {
	text := "SEIFGCNumModelValuesMinus1Comp1 : 2\n" +
		"SEIFGCCompModelValuesComp1 : " + strings.Repeat("64 8 8 ", 8) + "\n"
	m := mustParse(t, text, New())
	assert.Equal(t, 3, m.Comps[1].NumModelValues)
	assert.Equal(t, []int{64, 8, 8}, m.Comps[1].Intervals[7].Values)
}

func TestParseAbsentComponentClearsIntervals(t *testing.T) {
	m := mustParse(t, "SEIFGCCompModelPresentComp2 : 0\nSEIFGCCompModelValuesComp2 : x y z\n", New())
	assert.False(t, m.Comps[2].Present)
	assert.Empty(t, m.Comps[2].Intervals)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantIs   error
		wantLine int
		wantKey  string
	}{
		{
			name:     "malformed scalar",
			text:     "SEIFGCModelID : 0\nSEIFGCLog2ScaleFactor : five\n",
			wantIs:   ErrMalformedValue,
			wantLine: 2,
			wantKey:  "SEIFGCLog2ScaleFactor",
		},
		{
			name:     "scalar with two tokens",
			text:     "SEIFGCModelID : 0 1\n",
			wantIs:   ErrMalformedValue,
			wantLine: 1,
			wantKey:  "SEIFGCModelID",
		},
		{
			name:     "malformed list",
			text:     "SEIFGCIntensityIntervalUpperBoundComp0 : 39 59 x 99 119 139 159 255\n",
			wantIs:   ErrMalformedValue,
			wantLine: 1,
			wantKey:  "SEIFGCIntensityIntervalUpperBoundComp0",
		},
		{
			name:     "values row count",
			text:     "SEIFGCCompModelValuesComp0 : 1 2 3\n",
			wantIs:   ErrShapeMismatch,
			wantLine: 1,
			wantKey:  "SEIFGCCompModelValuesComp0",
		},
		{
			name:     "bounds length",
			text:     "SEIFGCNumIntensityIntervalMinus1Comp1 : 1\nSEIFGCIntensityIntervalLowerBoundComp1 : 0 10 20\n",
			wantIs:   ErrShapeMismatch,
			wantLine: 2,
			wantKey:  "SEIFGCIntensityIntervalLowerBoundComp1",
		},
		{
			name:    "count change without bounds",
			text:    "SEIFGCNumIntensityIntervalMinus1Comp0 : 3\n",
			wantIs:  ErrShapeMismatch,
			wantKey: "SEIFGCIntensityIntervalLowerBoundComp0",
		},
		{
			name:     "enable flags length",
			text:     "FGCDesignerIntervalEnabledComp0 : 1 0\n",
			wantIs:   ErrShapeMismatch,
			wantLine: 1,
			wantKey:  "FGCDesignerIntervalEnabledComp0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := New()
			m, err := Parse(strings.NewReader(tt.text), base)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, tt.wantIs), "got %v", err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantLine, pe.Line)
			assert.Equal(t, tt.wantKey, pe.Key)
			assert.Equal(t, New(), base)
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grain.cfg")
	m := New()
	m.Split(0, 0, 16)
	m.SetEnabled(0, 0, false)

	require.NoError(t, SaveFile(path, m, false))
	got, err := LoadFile(path, New())
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cfg"), New())
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	m := New()
	m.SetEnabled(1, 0, false)
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, m))

	out := buf.String()
	assert.Contains(t, out, "Y                                 : 8 intervals x 3 values\n")
	assert.Contains(t, out, "  [0]   0.. 63  [128] (disabled)\n")
}
