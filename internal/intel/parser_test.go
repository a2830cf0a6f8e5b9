package intel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = `#Ship Classes
; fighters
$Name: Rapier        ; comment
$Short name: RAP
$Species: Terran
$Manufacturer: Confed Shipyards
$Class type: Medium Fighter
+Type: XSTR("Fighter", 101)
+Length: 28 m
+Tech Description:
XSTR("The Rapier is a
medium fighter.", 3001)
$end_multi_text
$POF file: data\models\Rapier.pof
$Max Velocity: 0.0, 0.0, 420.0

$Name: Dralthi
$Species: Kilrathi
$POF file: dralthi.pof

$Name: Placeholder
$Species: Terran
#End
`

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(table))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	r := entries[0]
	assert.Equal(t, "Rapier", r.Name)
	assert.Equal(t, "RAP", r.ShortName)
	assert.Equal(t, "Terran", r.Species)
	assert.Equal(t, "Confed Shipyards", r.Manufacturer)
	assert.Equal(t, "Medium Fighter", r.ClassType)
	assert.Equal(t, "Fighter", r.Type)
	assert.Equal(t, "28 m", r.Length)
	assert.Equal(t, "The Rapier is a\nmedium fighter.", r.Description)
	assert.Equal(t, `data\models\Rapier.pof`, r.POFFile)
	assert.Equal(t, "0.0, 0.0, 420.0", r.Fields["max velocity"])

	assert.Equal(t, "Kilrathi", entries[1].Species)
}

func TestParseWindows1252(t *testing.T) {
	src := []byte("$Name: Caf\xe9\n$POF file: cafe.pof\n")
	entries, err := Parse(strings.NewReader(string(src)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Café", entries[0].Name)
}

func TestTableLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ships.tbl")
	require.NoError(t, os.WriteFile(path, []byte(table), 0644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	e, ok := tbl.Lookup("/some/dir/RAPIER.POF")
	require.True(t, ok)
	assert.Equal(t, "Rapier", e.Name)

	_, ok = tbl.Lookup("placeholder.pof")
	assert.False(t, ok)

	var none *Table
	_, ok = none.Lookup("rapier.pof")
	assert.False(t, ok)

	_, err = LoadTable(filepath.Join(dir, "missing.tbl"))
	assert.Error(t, err)
}

func TestUnwrap(t *testing.T) {
	assert.Equal(t, "Fighter", unwrap(` XSTR("Fighter", 12) `))
	assert.Equal(t, "quoted", unwrap(`"quoted"`))
	assert.Equal(t, "plain", unwrap("plain"))
}
