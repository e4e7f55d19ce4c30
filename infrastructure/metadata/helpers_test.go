package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-qa4sm/internal/domain"
	"github.com/ahrav/go-qa4sm/internal/testutils"
)

func testGrammar(t testing.TB) *Grammar {
	t.Helper()
	g, err := Default()
	require.NoError(t, err)
	return g
}

// era5Registry builds the registry of testutils.ERA5Scenario: ERA5 is the
// reference at index 4 (id 5); C3S, ASCAT and SMOS get ids 2, 3 and 4.
func era5Registry(t testing.TB, g *Grammar) *Registry {
	t.Helper()
	reg, err := NewRegistry(g, testutils.ERA5ScenarioAttributes().Build())
	require.NoError(t, err)
	return reg
}

func resolveName(t testing.TB, g *Grammar, reg *Registry, name string) domain.MetricVariable {
	t.Helper()
	v, err := NewResolver(g).Resolve(NewParser(g).Parse(name), reg, nil)
	require.NoError(t, err)
	return v
}
