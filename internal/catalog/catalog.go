// Package catalog loads the static instrument registry and resolves
// human input to canonical instrument codes.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"KabuScope/internal/model"
)

// CodeWidth is the fixed width of exchange-local codes; shorter raw codes
// are zero-padded on the left.
const CodeWidth = 4

// MarketSuffix is appended to a padded code to form the symbol the quote
// source understands.
const MarketSuffix = ".T"

var requiredColumns = []string{"code", "name", "segment", "sector"}

// Catalog holds the loaded registry. Read-only after Load; safe for
// concurrent use.
type Catalog struct {
	instruments []model.Instrument
	byCode      map[string]int
}

// Load parses a UTF-8 CSV registry. The header must contain the columns
// code, name, segment and sector (case-insensitive, extra columns ignored);
// a missing required column fails with *model.SchemaError. Rows whose
// segment label is not a recognized tradable segment are dropped silently.
func Load(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read registry header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &model.SchemaError{Missing: missing}
	}

	c := &Catalog{byCode: make(map[string]int)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read registry row: %w", err)
		}
		field := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		seg := model.ParseSegment(field("segment"))
		if !seg.Tradable() {
			continue
		}
		code := padCode(field("code"))
		if code == "" {
			continue
		}
		if _, dup := c.byCode[code]; dup {
			continue // registry order is stable, first row wins
		}
		c.byCode[code] = len(c.instruments)
		c.instruments = append(c.instruments, model.Instrument{
			Code:    code,
			Name:    field("name"),
			Segment: seg,
			Sector:  field("sector"),
		})
	}
	return c, nil
}

func padCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for len(raw) < CodeWidth {
		raw = "0" + raw
	}
	return raw
}

// Canonicalize zero-pads a raw code and appends the market suffix,
// producing the symbol used by the quote source (e.g. "7203" -> "7203.T").
func Canonicalize(raw string) string {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), MarketSuffix)
	return padCode(raw) + MarketSuffix
}

// Lookup resolves a raw or canonical code to its instrument, or
// model.ErrNotFound for codes absent from the catalog.
func (c *Catalog) Lookup(code string) (model.Instrument, error) {
	key := padCode(strings.TrimSuffix(strings.TrimSpace(code), MarketSuffix))
	i, ok := c.byCode[key]
	if !ok {
		return model.Instrument{}, fmt.Errorf("instrument %q: %w", code, model.ErrNotFound)
	}
	return c.instruments[i], nil
}

// Search returns instruments whose code or name contains term
// (case-insensitive), intersected with the optional segment and sector
// filters. Nil filters match everything. Results keep registry order.
func (c *Catalog) Search(term string, segments []model.Segment, sectors []string) []model.Instrument {
	term = strings.ToLower(strings.TrimSpace(term))

	segOK := func(s model.Segment) bool {
		if len(segments) == 0 {
			return true
		}
		for _, want := range segments {
			if s == want {
				return true
			}
		}
		return false
	}
	secOK := func(s string) bool {
		if len(sectors) == 0 {
			return true
		}
		for _, want := range sectors {
			if strings.EqualFold(s, want) {
				return true
			}
		}
		return false
	}

	var out []model.Instrument
	for _, ins := range c.instruments {
		if !segOK(ins.Segment) || !secOK(ins.Sector) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(ins.Code), term) &&
			!strings.Contains(strings.ToLower(ins.Name), term) {
			continue
		}
		out = append(out, ins)
	}
	return out
}

// Len returns the number of retained instruments.
func (c *Catalog) Len() int { return len(c.instruments) }

// All returns the retained instruments in registry order. The caller must
// not modify the returned slice.
func (c *Catalog) All() []model.Instrument { return c.instruments }
