package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "init", "export"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_Flags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, serveCmd.Flags().Lookup("addr"))
	assert.NotNil(t, ingestCmd.Flags().Lookup("root"))
	assert.NotNil(t, initCmd.Flags().Lookup("water-data"))
	assert.NotNil(t, initCmd.Flags().Lookup("samples"))

	for _, name := range []string{"format", "out", "start", "end", "province", "basin"} {
		assert.NotNil(t, exportCmd.Flags().Lookup(name), "export flag %s", name)
	}
	assert.Equal(t, "csv", exportCmd.Flags().Lookup("format").DefValue)
}

func TestExportFilter(t *testing.T) {
	t.Cleanup(func() { exportStart, exportEnd, exportProvince, exportBasin = "", "", "", "" })

	exportStart, exportEnd, exportProvince = "2024-03-01", "2024-03-31", "广东省"
	f, err := exportFilter()
	require.NoError(t, err)
	require.NotNil(t, f.Start)
	require.NotNil(t, f.End)
	assert.Equal(t, "2024-03-01", f.Start.Format(dateLayout))
	assert.Equal(t, "2024-04-01", f.End.Format(dateLayout))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *f.Start)
	assert.Equal(t, time.UTC, f.End.Location())
	assert.Equal(t, "广东省", f.Province)
	assert.Empty(t, f.Basin)

	exportStart, exportEnd = "", ""
	f, err = exportFilter()
	require.NoError(t, err)
	assert.Nil(t, f.Start)
	assert.Nil(t, f.End)

	exportEnd = "03/31/2024"
	_, err = exportFilter()
	assert.Error(t, err)
}
