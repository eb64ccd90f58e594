package fgc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var (
	// ErrMalformedValue is returned when a value does not tokenize into integers.
	ErrMalformedValue = errors.New("malformed value")
	// ErrShapeMismatch is returned when list lengths disagree with the interval count.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// ParseError describes a config value that could not be applied.
type ParseError struct {
	Line int
	Key  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("fgc: line %d: %s: %v", e.Line, e.Key, e.Err)
	}
	return fmt.Sprintf("fgc: %s: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const (
	keyEnabled            = "SEIFGCEnabled"
	keyCancelFlag         = "SEIFGCCancelFlag"
	keyPersistenceFlag    = "SEIFGCPersistenceFlag"
	keyModelID            = "SEIFGCModelID"
	keySepColourDesc      = "SEIFGCSepColourDescPresentFlag"
	keyBlendingModeID     = "SEIFGCBlendingModeID"
	keyLog2ScaleFactor    = "SEIFGCLog2ScaleFactor"
	keyCompPresentFmt     = "SEIFGCCompModelPresentComp%d"
	keyNumIntervalsFmt    = "SEIFGCNumIntensityIntervalMinus1Comp%d"
	keyNumModelValuesFmt  = "SEIFGCNumModelValuesMinus1Comp%d"
	keyLowerBoundFmt      = "SEIFGCIntensityIntervalLowerBoundComp%d"
	keyUpperBoundFmt      = "SEIFGCIntensityIntervalUpperBoundComp%d"
	keyModelValuesFmt     = "SEIFGCCompModelValuesComp%d"
	keyIntervalEnabledFmt = "FGCDesignerIntervalEnabledComp%d"
)

type entry struct {
	line  int
	key   string
	value string
}

// entries indexes "key : value" lines by case-folded key. Later lines win.
type entries struct {
	byKey map[string]entry
	fold  cases.Caser
}

func scanEntries(r io.Reader) (*entries, error) {
	e := &entries{byKey: map[string]entry{}, fold: cases.Fold()}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		e.byKey[e.fold.String(key)] = entry{line: n, key: key, value: strings.TrimSpace(value)}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return e, nil
}

func (e *entries) lookup(key string) (entry, bool) {
	v, ok := e.byKey[e.fold.String(key)]
	return v, ok
}

func (e *entries) ints(key string) ([]int, *entry, error) {
	ent, ok := e.lookup(key)
	if !ok {
		return nil, nil, nil
	}
	fields := strings.Fields(ent.value)
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, &ent, &ParseError{Line: ent.line, Key: ent.key, Err: fmt.Errorf("%w: %q", ErrMalformedValue, f)}
		}
		out = append(out, v)
	}
	return out, &ent, nil
}

func (e *entries) scalar(key string) (int, bool, error) {
	vals, ent, err := e.ints(key)
	if err != nil || ent == nil {
		return 0, false, err
	}
	if len(vals) != 1 {
		return 0, false, &ParseError{Line: ent.line, Key: ent.key, Err: fmt.Errorf("%w: want 1 integer, got %d", ErrMalformedValue, len(vals))}
	}
	return vals[0], true, nil
}

func shapeErr(ent *entry, key string, format string, args ...any) *ParseError {
	pe := &ParseError{Key: key, Err: fmt.Errorf("%w: "+format, append([]any{ErrShapeMismatch}, args...)...)}
	if ent != nil && ent.key != "" {
		pe.Line = ent.line
		pe.Key = ent.key
	}
	return pe
}

// Parse reads a config from r on top of a copy of base. Keys absent from r
// keep the value they have in base. base is never modified.
func Parse(r io.Reader, base *Model) (*Model, error) {
	e, err := scanEntries(r)
	if err != nil {
		return nil, err
	}

	m := base.Clone()
	if v, ok, err := e.scalar(keyModelID); err != nil {
		return nil, err
	} else if ok {
		m.ModelID = v
	}
	if v, ok, err := e.scalar(keyLog2ScaleFactor); err != nil {
		return nil, err
	} else if ok {
		m.Log2ScaleFactor = v
	}
	for c := range NumComponents {
		if v, ok, err := e.scalar(fmt.Sprintf(keyCompPresentFmt, c)); err != nil {
			return nil, err
		} else if ok {
			m.Comps[c].Present = v != 0
		}
	}

	for c := range NumComponents {
		if !m.Comps[c].Present {
			m.Comps[c].Intervals = nil
			continue
		}
		if err := parseComponent(e, c, &m.Comps[c]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseComponent(e *entries, c int, comp *Component) error {
	prior := comp.Intervals
	count := len(prior)
	nmv := comp.NumModelValues

	lower, lowerEnt, err := e.ints(fmt.Sprintf(keyLowerBoundFmt, c))
	if err != nil {
		return err
	}
	upper, upperEnt, err := e.ints(fmt.Sprintf(keyUpperBoundFmt, c))
	if err != nil {
		return err
	}
	values, valuesEnt, err := e.ints(fmt.Sprintf(keyModelValuesFmt, c))
	if err != nil {
		return err
	}
	enabled, enabledEnt, err := e.ints(fmt.Sprintf(keyIntervalEnabledFmt, c))
	if err != nil {
		return err
	}

	countKey := fmt.Sprintf(keyNumIntervalsFmt, c)
	if v, ok, err := e.scalar(countKey); err != nil {
		return err
	} else if ok {
		count = v + 1
	} else if lowerEnt != nil {
		count = len(lower)
	}
	if count < 1 {
		ent, _ := e.lookup(countKey)
		return shapeErr(&ent, countKey, "component %d has no intervals", c)
	}

	nmvKey := fmt.Sprintf(keyNumModelValuesFmt, c)
	if v, ok, err := e.scalar(nmvKey); err != nil {
		return err
	} else if ok {
		nmv = v + 1
	}
	if nmv < 1 {
		ent, _ := e.lookup(nmvKey)
		return shapeErr(&ent, nmvKey, "component %d has %d model values", c, nmv)
	}

	if lowerEnt == nil {
		if count != len(prior) {
			return shapeErr(nil, fmt.Sprintf(keyLowerBoundFmt, c), "interval count changed to %d without lower bounds", count)
		}
		for _, iv := range prior {
			lower = append(lower, iv.Lower)
		}
	} else if len(lower) != count {
		return shapeErr(lowerEnt, "", "%d lower bounds for %d intervals", len(lower), count)
	}

	if upperEnt == nil {
		if count != len(prior) {
			return shapeErr(nil, fmt.Sprintf(keyUpperBoundFmt, c), "interval count changed to %d without upper bounds", count)
		}
		for _, iv := range prior {
			upper = append(upper, iv.Upper)
		}
	} else if len(upper) != count {
		return shapeErr(upperEnt, "", "%d upper bounds for %d intervals", len(upper), count)
	}

	if valuesEnt == nil {
		if count != len(prior) || nmv != comp.NumModelValues {
			return shapeErr(nil, fmt.Sprintf(keyModelValuesFmt, c), "shape changed to %dx%d without model values", count, nmv)
		}
		for _, iv := range prior {
			values = append(values, iv.Values...)
		}
	}
	if len(values) != count*nmv {
		return shapeErr(valuesEnt, fmt.Sprintf(keyModelValuesFmt, c), "%d model values for %d intervals x %d", len(values), count, nmv)
	}

	if enabledEnt != nil && len(enabled) != count {
		return shapeErr(enabledEnt, "", "%d enable flags for %d intervals", len(enabled), count)
	}

	// without flags, an unchanged partition keeps its prior enable state
	keepEnabled := enabledEnt == nil && count == len(prior)
	intervals := make([]Interval, count)
	for k := range intervals {
		on := true
		switch {
		case enabledEnt != nil:
			on = enabled[k] != 0
		case keepEnabled:
			on = prior[k].Enabled
		}
		intervals[k] = Interval{
			Lower:   lower[k],
			Upper:   upper[k],
			Values:  append([]int(nil), values[k*nmv:(k+1)*nmv]...),
			Enabled: on,
		}
	}
	comp.NumModelValues = nmv
	comp.Intervals = intervals
	return nil
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Serialize writes m in config text form. With maskDisabled set, the gain of
// every disabled interval is written as 0; m itself is not changed.
// Unmasked output records disabled intervals under a designer-only key that
// the synthesizer ignores.
func Serialize(w io.Writer, m *Model, maskDisabled bool) error {
	bw := bufio.NewWriter(w)
	put := func(key string, value any) {
		fmt.Fprintf(bw, "%-39s: %v\n", key, value)
	}

	put(keyEnabled, 1)
	put(keyCancelFlag, 0)
	put(keyPersistenceFlag, 1)
	put(keyModelID, m.ModelID)
	put(keySepColourDesc, 0)
	put(keyBlendingModeID, 0)
	put(keyLog2ScaleFactor, m.Log2ScaleFactor)
	for c, comp := range m.Comps {
		put(fmt.Sprintf(keyCompPresentFmt, c), boolInt(comp.Present))
	}
	for c, comp := range m.Comps {
		if comp.Present {
			put(fmt.Sprintf(keyNumIntervalsFmt, c), len(comp.Intervals)-1)
		}
	}
	for c, comp := range m.Comps {
		if comp.Present {
			put(fmt.Sprintf(keyNumModelValuesFmt, c), comp.NumModelValues-1)
		}
	}
	for c, comp := range m.Comps {
		if comp.Present {
			bounds := make([]int, len(comp.Intervals))
			for k, iv := range comp.Intervals {
				bounds[k] = iv.Lower
			}
			put(fmt.Sprintf(keyLowerBoundFmt, c), joinInts(bounds))
		}
	}
	for c, comp := range m.Comps {
		if comp.Present {
			bounds := make([]int, len(comp.Intervals))
			for k, iv := range comp.Intervals {
				bounds[k] = iv.Upper
			}
			put(fmt.Sprintf(keyUpperBoundFmt, c), joinInts(bounds))
		}
	}
	for c, comp := range m.Comps {
		if !comp.Present {
			continue
		}
		var flat []int
		for _, iv := range comp.Intervals {
			row := append([]int(nil), iv.Values...)
			if maskDisabled && !iv.Enabled && len(row) > 0 {
				row[0] = 0
			}
			flat = append(flat, row...)
		}
		put(fmt.Sprintf(keyModelValuesFmt, c), joinInts(flat))
	}

	if !maskDisabled {
		for c, comp := range m.Comps {
			if !comp.Present || !hasDisabled(comp) {
				continue
			}
			flags := make([]int, len(comp.Intervals))
			for k, iv := range comp.Intervals {
				flags[k] = boolInt(iv.Enabled)
			}
			put(fmt.Sprintf(keyIntervalEnabledFmt, c), joinInts(flags))
		}
	}
	return bw.Flush()
}

func hasDisabled(comp Component) bool {
	for _, iv := range comp.Intervals {
		if !iv.Enabled {
			return true
		}
	}
	return false
}

// Marshal returns the config text of m.
func Marshal(m *Model, maskDisabled bool) []byte {
	var buf bytes.Buffer
	_ = Serialize(&buf, m, maskDisabled)
	return buf.Bytes()
}

// LoadFile parses the config file at path on top of base.
func LoadFile(path string, base *Model) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, base)
}

// SaveFile writes the config text of m to path.
func SaveFile(path string, m *Model, maskDisabled bool) error {
	if err := os.WriteFile(path, Marshal(m, maskDisabled), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Summary writes a human readable dump of m.
func Summary(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-34s: %d\n", "model_id", m.ModelID)
	fmt.Fprintf(bw, "%-34s: %d\n", "log2_scale_factor", m.Log2ScaleFactor)
	fmt.Fprintf(bw, "%-34s: %d\n", "global_gain", m.GlobalGain)
	for c, comp := range m.Comps {
		name := ComponentName(c)
		if !comp.Present {
			fmt.Fprintf(bw, "%-34s: absent\n", name)
			continue
		}
		fmt.Fprintf(bw, "%-34s: %d intervals x %d values\n", name, len(comp.Intervals), comp.NumModelValues)
		for k, iv := range comp.Intervals {
			state := ""
			if !iv.Enabled {
				state = " (disabled)"
			}
			fmt.Fprintf(bw, "  [%d] %3d..%3d  %v%s\n", k, iv.Lower, iv.Upper, iv.Values, state)
		}
	}
	return bw.Flush()
}
