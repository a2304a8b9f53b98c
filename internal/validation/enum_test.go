package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnumType(t *testing.T) {
	vals, err := ParseEnumType("enum('Available','Reserved','Occupied')")
	require.NoError(t, err)
	assert.Equal(t, []string{"Available", "Reserved", "Occupied"}, vals)

	vals, err = ParseEnumType("ENUM('a', 'b''s')")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b's"}, vals)

	_, err = ParseEnumType("varchar(20)")
	assert.Error(t, err)
}

func TestEnumTable_IsImmutable(t *testing.T) {
	src := map[Column][]string{SlotStatus: {"Available", "Reserved"}}
	table := NewEnumTable(src)

	src[SlotStatus][0] = "Broken"
	src[SlotType] = []string{"Compact"}

	assert.True(t, table.Contains(SlotStatus, "AVAILABLE"))
	assert.False(t, table.Contains(SlotStatus, "broken"))
	assert.False(t, table.Contains(SlotType, "compact"))

	vals := table.Values(SlotStatus)
	vals[0] = "mutated"
	assert.Equal(t, []string{"available", "reserved"}, table.Values(SlotStatus))
}

func TestEnumTable_ParseList(t *testing.T) {
	table := NewEnumTable(map[Column][]string{SlotStatus: {"Available", "Reserved", "Occupied"}})

	got, err := table.ParseList(SlotStatus, " Available, occupied,,available ")
	require.NoError(t, err)
	assert.Equal(t, []string{"available", "occupied"}, got)

	_, err = table.ParseList(SlotStatus, "available,parked")
	var invalid *InvalidValueError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "parked", invalid.Value)
	assert.Equal(t, "invalid status: parked", err.Error())
}

func TestEnumTable_ZeroValue(t *testing.T) {
	var table EnumTable
	assert.False(t, table.Contains(SlotStatus, "available"))
	assert.Empty(t, table.Values(SlotStatus))
}
