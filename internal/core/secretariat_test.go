package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSecretariat(t *testing.T) {
	s := ParseSecretariat("SEMED - Secretaria Municipal de Educação")
	assert.Equal(t, "SEMED", s.Code)
	assert.Equal(t, "Secretaria Municipal de Educação", s.Name)

	s = ParseSecretariat("X - Nome - Com Hífen")
	assert.Equal(t, "X", s.Code)
	assert.Equal(t, "Nome - Com Hífen", s.Name)

	s = ParseSecretariat("SOLO")
	assert.Equal(t, "SOLO", s.Code)
	assert.Empty(t, s.Name)
}

func TestCatalogResolve(t *testing.T) {
	c, err := NewCatalog([]string{
		"SESAU - Secretaria Municipal de Saúde",
		"SEMED - Secretaria Municipal de Educação",
		"SAÚDE - Saúde",
		"NOSUFFIX",
	}, "SESAU")
	require.NoError(t, err)

	assert.Equal(t, "SEMED - Secretaria Municipal de Educação",
		c.Resolve("CPE - Coordenadoria vinculada à Secretaria Municipal de Educação"))
	// First match wins even when a later entry also matches.
	assert.Equal(t, "SESAU - Secretaria Municipal de Saúde",
		c.Resolve("Gabinete da Secretaria Municipal de Saúde"))
	assert.Equal(t, "SAÚDE - Saúde", c.Resolve("SRAS - Superintendência da Rede de Assistência a Saúde"))
	// No match falls back to the default.
	assert.Equal(t, "SESAU - Secretaria Municipal de Saúde", c.Resolve("CRAE - Coordenadoria"))
	// Matching is case sensitive.
	assert.Equal(t, "SESAU - Secretaria Municipal de Saúde", c.Resolve("secretaria municipal de educação"))
	// Labels without a suffix never match.
	assert.Equal(t, "SESAU - Secretaria Municipal de Saúde", c.Resolve("NOSUFFIX"))
}

func TestNewCatalogErrors(t *testing.T) {
	_, err := NewCatalog(nil, "SESAU")
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = NewCatalog([]string{"A - Alpha"}, "SESAU")
	assert.ErrorIs(t, err, ErrUnknownSecretariat)
}

func TestNewCatalogDedupesAndKeepsOrder(t *testing.T) {
	c, err := NewCatalog([]string{"B - Beta", "A - Alpha", "B - Beta", "  "}, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"B - Beta", "A - Alpha"}, c.Labels())
	assert.Equal(t, "A - Alpha", c.Default().Label)
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, DefaultSecretariatCode, c.Default().Code)
	assert.NotEmpty(t, c.Entries())
	assert.Equal(t, c.Default().Label, c.Resolve("unidade desconhecida"))
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secretariats.yaml")
	content := "default: SEMED\nsecretariats:\n  - \"SESAU - Secretaria Municipal de Saúde\"\n  - \"SEMED - Secretaria Municipal de Educação\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadCatalog(path, "SESAU")
	require.NoError(t, err)
	assert.Equal(t, "SEMED", c.Default().Code)
	assert.Len(t, c.Entries(), 2)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"), "SESAU")
	assert.Error(t, err)
}
