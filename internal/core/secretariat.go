package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LabelSeparator splits "<CODE> - <Full Name>" labels and organizational units.
const LabelSeparator = " - "

// DefaultSecretariatCode is used when an organizational unit matches no secretariat.
const DefaultSecretariatCode = "SESAU"

var defaultSecretariatLabels = []string{
	"SESAU - Secretaria Municipal de Saúde",
	"SEMED - Secretaria Municipal de Educação",
	"SAS - Secretaria Municipal de Assistência Social",
	"SISEP - Secretaria Municipal de Infraestrutura e Serviços Públicos",
	"SEFIN - Secretaria Municipal de Finanças e Planejamento",
	"SEGES - Secretaria Municipal de Gestão",
	"SEMADUR - Secretaria Municipal de Meio Ambiente e Gestão Urbana",
	"SECTUR - Secretaria Municipal de Cultura e Turismo",
}

var (
	ErrEmptyCatalog       = errors.New("secretariat catalog is empty")
	ErrUnknownSecretariat = errors.New("unknown secretariat")
)

// Secretariat is one entry of the known-secretariats list.
type Secretariat struct {
	Label string `json:"label"`
	Code  string `json:"code"`
	Name  string `json:"name"`
}

// ParseSecretariat splits a "<CODE> - <Full Name>" label. Labels without the
// separator keep an empty Name and therefore never match a unit.
func ParseSecretariat(label string) Secretariat {
	label = strings.TrimSpace(label)
	code, name, found := strings.Cut(label, LabelSeparator)
	if !found {
		return Secretariat{Label: label, Code: label}
	}
	return Secretariat{Label: label, Code: strings.TrimSpace(code), Name: strings.TrimSpace(name)}
}

// Catalog is the ordered list of known secretariats plus the fallback entry.
type Catalog struct {
	entries []Secretariat
	def     Secretariat
}

// NewCatalog builds a catalog from labels, keeping their order. defaultCode
// selects the fallback secretariat and must be one of the labels' codes.
func NewCatalog(labels []string, defaultCode string) (*Catalog, error) {
	c := &Catalog{}
	seen := map[string]struct{}{}
	for _, l := range labels {
		s := ParseSecretariat(l)
		if s.Label == "" {
			continue
		}
		if _, ok := seen[s.Label]; ok {
			continue
		}
		seen[s.Label] = struct{}{}
		c.entries = append(c.entries, s)
	}
	if len(c.entries) == 0 {
		return nil, ErrEmptyCatalog
	}
	def, ok := c.ByCode(defaultCode)
	if !ok {
		return nil, fmt.Errorf("%w: default code %q", ErrUnknownSecretariat, defaultCode)
	}
	c.def = def
	return c, nil
}

// DefaultCatalog returns the built-in municipal secretariats with SESAU as fallback.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultSecretariatLabels, DefaultSecretariatCode)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Default      string   `yaml:"default"`
	Secretariats []string `yaml:"secretariats"`
}

// LoadCatalog reads a YAML file of the form
//
//	default: SESAU
//	secretariats:
//	  - "SESAU - Secretaria Municipal de Saúde"
//
// When default is omitted, defaultCode is used.
func LoadCatalog(path, defaultCode string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secretariat catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse secretariat catalog %s: %w", path, err)
	}
	if strings.TrimSpace(f.Default) != "" {
		defaultCode = f.Default
	}
	return NewCatalog(f.Secretariats, defaultCode)
}

// Entries returns a copy of the catalog in configured order.
func (c *Catalog) Entries() []Secretariat {
	return append([]Secretariat(nil), c.entries...)
}

// Labels returns the labels in configured order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.entries))
	for i, s := range c.entries {
		out[i] = s.Label
	}
	return out
}

// Default returns the fallback secretariat.
func (c *Catalog) Default() Secretariat {
	return c.def
}

// ByCode looks up a secretariat by its code.
func (c *Catalog) ByCode(code string) (Secretariat, bool) {
	code = strings.TrimSpace(code)
	for _, s := range c.entries {
		if strings.EqualFold(s.Code, code) {
			return s, true
		}
	}
	return Secretariat{}, false
}

// Resolve returns the label of the first secretariat whose full name occurs in
// unit, or the default label.
func (c *Catalog) Resolve(unit string) string {
	for _, s := range c.entries {
		if s.Name != "" && strings.Contains(unit, s.Name) {
			return s.Label
		}
	}
	return c.def.Label
}
