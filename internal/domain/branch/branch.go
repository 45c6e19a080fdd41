// Package branch holds presentation metadata for academic branch codes.
//
// The table is used for display only. Student ID validation does not
// consult it, and unknown codes resolve to a generic fallback entry.
package branch

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Info describes how a branch is presented.
type Info struct {
	Code  string `json:"code" toml:"-"`
	Name  string `json:"name" toml:"name"`
	Class string `json:"class" toml:"class"`
	Color string `json:"color" toml:"color"`
	Icon  string `json:"icon" toml:"icon"`
}

// Table maps a 2-letter branch code to its Info.
type Table map[string]Info

// Default returns the built-in branch table.
func Default() Table {
	return Table{
		"AU": {Name: "Automobile Engineering", Class: "branch-au", Color: "#E91E63", Icon: "fa-car"},
		"CE": {Name: "Civil Engineering", Class: "branch-ce", Color: "#009688", Icon: "fa-building"},
		"CV": {Name: "Civil & Environmental Engineering", Class: "branch-cv", Color: "#795548", Icon: "fa-tree"},
		"CS": {Name: "Computer Science & Engineering", Class: "branch-cs", Color: "#2196F3", Icon: "fa-laptop-code"},
		"EE": {Name: "Electrical & Electronics Engineering", Class: "branch-ee", Color: "#FF9800", Icon: "fa-bolt"},
		"CO": {Name: "Computer Science & Engineering (Data Science)", Class: "branch-co", Color: "#673AB7", Icon: "fa-chart-line"},
		"CT": {Name: "Computer Science & Engineering (AI)", Class: "branch-ct", Color: "#9C27B0", Icon: "fa-robot"},
		"EC": {Name: "Electronics & Communication Engineering", Class: "branch-ec", Color: "#4CAF50", Icon: "fa-satellite-dish"},
		"EV": {Name: "Electronics & Communication Engineering (VLSI)", Class: "branch-ev", Color: "#FF5722", Icon: "fa-microchip"},
		"ME": {Name: "Mechanical Engineering", Class: "branch-me", Color: "#F44336", Icon: "fa-cogs"},
	}
}

// Fallback returns the generic entry used for codes missing from a table.
func Fallback(code string) Info {
	return Info{
		Code:  code,
		Name:  code + " Branch",
		Class: "branch-cs",
		Color: "#2196F3",
		Icon:  "fa-graduation-cap",
	}
}

// Lookup returns the Info for code, or Fallback(code) when it is unknown.
// A nil table behaves like an empty one.
func (t Table) Lookup(code string) Info {
	info, ok := t[code]
	if !ok {
		return Fallback(code)
	}
	info.Code = code
	return info
}

// Merge returns a new table with overrides layered over t. Empty fields in an
// override keep the value from t.
func (t Table) Merge(overrides Table) Table {
	out := make(Table, len(t)+len(overrides))
	for code, info := range t {
		out[code] = info
	}
	for code, o := range overrides {
		base, ok := out[code]
		if !ok {
			base = Fallback(code)
			base.Code = ""
		}
		if o.Name != "" {
			base.Name = o.Name
		}
		if o.Class != "" {
			base.Class = o.Class
		}
		if o.Color != "" {
			base.Color = o.Color
		}
		if o.Icon != "" {
			base.Icon = o.Icon
		}
		out[code] = base
	}
	return out
}

// List returns every entry sorted by code, with Code populated.
func (t Table) List() []Info {
	out := make([]Info, 0, len(t))
	for code := range t {
		out = append(out, t.Lookup(code))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

type tableFile struct {
	Branches map[string]Info `toml:"branches"`
}

// LoadTOML reads a table from TOML of the form:
//
//	[branches.CS]
//	name  = "Computer Science & Engineering"
//	color = "#2196F3"
func LoadTOML(r io.Reader) (Table, error) {
	var f tableFile
	if err := toml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	out := make(Table, len(f.Branches))
	for code, info := range f.Branches {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 2 {
			return nil, fmt.Errorf("%w: branch code %q must have 2 letters", ErrLoad, code)
		}
		out[code] = info
	}
	return out, nil
}

// LoadFile reads overrides from path and merges them over Default.
func LoadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer func() { _ = f.Close() }()

	overrides, err := LoadTOML(f)
	if err != nil {
		return nil, err
	}
	return Default().Merge(overrides), nil
}
