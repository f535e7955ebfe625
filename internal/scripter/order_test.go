package scripter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func t3(schema, name string, deps ...string) *tableInfo {
	return &tableInfo{Schema: schema, Name: name, Dependencies: deps}
}

func TestSortByDependencies_Simple(t *testing.T) {
	// Users <- Orders <- OrderItems
	tables := []*tableInfo{
		t3("dbo", "OrderItems", "dbo.orders"),
		t3("dbo", "Orders", "dbo.users"),
		t3("dbo", "Users"),
	}

	sorted := sortByDependencies(tables, nil)

	require.Len(t, sorted, 3)
	assert.Equal(t, "Users", sorted[0].Name)
	assert.Equal(t, "Orders", sorted[1].Name)
	assert.Equal(t, "OrderItems", sorted[2].Name)
}

func TestSortByDependencies_CycleIsBroken(t *testing.T) {
	// A -> B -> C -> D -> E -> A (cycle), F -> E, G independent
	tables := []*tableInfo{
		t3("dbo", "A", "dbo.b"),
		t3("dbo", "B", "dbo.c"),
		t3("dbo", "C", "dbo.d"),
		t3("dbo", "D", "dbo.e"),
		t3("dbo", "E", "dbo.a"),
		t3("dbo", "F", "dbo.e"),
		t3("dbo", "G"),
	}

	sorted := sortByDependencies(tables, nil)

	require.Len(t, sorted, len(tables))
	seen := make(map[string]bool)
	for _, tbl := range sorted {
		seen[tbl.Name] = true
	}
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		assert.True(t, seen[name], "missing %s", name)
	}

	// The independent table never waits on the cycle.
	assert.Equal(t, "G", sorted[0].Name)
}

func TestSortByDependencies_SelfReferenceIgnored(t *testing.T) {
	// loadDependencies skips self references, but the sorter must also
	// not deadlock if one slips through.
	tables := []*tableInfo{
		t3("dbo", "Tree", "dbo.tree"),
	}

	sorted := sortByDependencies(tables, nil)
	require.Len(t, sorted, 1)
}
