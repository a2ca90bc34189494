package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/tabstat/internal/frame"
)

// parseCell types one raw cell: null token, boolean, number, time, else text.
func (c *converter) parseCell(raw string) frame.Value {
	s := strings.TrimSpace(raw)
	if c.isNull(s) {
		return frame.Null()
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return frame.Bool(true)
	case "false", "no":
		return frame.Bool(false)
	}
	if f, ok := parseNumeric(s, c.opt.DecimalSeparator, c.opt.ThousandsSeparator); ok {
		return frame.Number(f)
	}
	if t, ok := parseTimeMaybe(s); ok {
		return frame.Time(t)
	}
	return frame.String(s)
}

func (c *converter) isNull(s string) bool {
	if s == "" {
		return true
	}
	_, ok := c.nulls[strings.ToLower(s)]
	return ok
}

// converter carries per-read state: resolved options and the unit of each column.
type converter struct {
	opt   Options
	nulls map[string]struct{}
	units []unitConv
}

type unitConv struct {
	unit   string
	target string
}

func newConverter(opt Options) *converter {
	c := &converter{opt: opt, nulls: make(map[string]struct{}, len(opt.NullTokens))}
	for _, tok := range opt.NullTokens {
		c.nulls[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	return c
}

// header cleans column names, strips unit suffixes and makes names unique.
func (c *converter) header(raw []string) (names []string, units map[string]string) {
	names = make([]string, len(raw))
	units = make(map[string]string)
	c.units = make([]unitConv, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name, unit := strings.TrimSpace(h), ""
		if c.opt.SplitUnits {
			name, unit = splitUnits(name)
		}
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n+1)
		}
		seen[name]++
		names[i] = name
		if unit == "" {
			continue
		}
		uc := unitConv{unit: unit}
		if c.opt.UnitNormalize {
			if target, ok := c.opt.UnitTargets[unit]; ok {
				if _, ok := convertUnit(0, unit, target); ok {
					uc.target = target
				}
			}
		}
		c.units[i] = uc
		if uc.target != "" {
			units[name] = uc.target
		} else {
			units[name] = unit
		}
	}
	return names, units
}

// row types a raw record into values, applying unit conversion per column.
func (c *converter) row(rec []string) []frame.Value {
	out := make([]frame.Value, len(rec))
	for j, raw := range rec {
		v := c.parseCell(raw)
		if j < len(c.units) && c.units[j].target != "" {
			if f, ok := v.Float(); ok {
				if x, ok := convertUnit(f, c.units[j].unit, c.units[j].target); ok {
					v = frame.Number(x)
				}
			}
		}
		out[j] = v
	}
	return out
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".tab") {
		return '\t'
	}
	return ','
}

// sniffLine picks the delimiter occurring most often in a header line.
func sniffLine(line string) rune {
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric reads locale-formatted numbers. With dec == 0 the decimal
// separator is guessed per value: the later of ',' and '.' wins.
func parseNumeric(s string, dec, thou rune) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" || !startsNumeric(raw) {
		return 0, false
	}
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// startsNumeric rejects words strconv would accept, such as "inf" or "nan".
func startsNumeric(s string) bool {
	c := s[0]
	if c == '+' || c == '-' {
		if len(s) == 1 {
			return false
		}
		c = s[1]
	}
	return (c >= '0' && c <= '9') || c == '.' || c == ','
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // Alpha (%)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // Mass [mg/L]
	{regexp.MustCompile(`^(.*?)[_\s-]+(mg/L|g/L|ug/L|°[CF]|Brix|%|ppm|ppb)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

func convertUnit(x float64, unit, target string) (float64, bool) {
	switch unit + ">" + target {
	case "g/L>mg/L":
		return x * 1000, true
	case "ug/L>mg/L":
		return x / 1000, true
	case "°F>°C":
		return (x - 32) * 5.0 / 9.0, true
	case "°C>°F":
		return x*9.0/5.0 + 32, true
	}
	return x, false
}
