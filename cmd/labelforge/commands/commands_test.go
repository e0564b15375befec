package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelforge/internal/lineage/models"
)

const catalogCSV = "Product Name*,Product Type*,Lineage,Product Brand,Vendor,Price,Weight*,Product Strain\n" +
	"Blue Dream Flower,Flower,sativa,Acme,12345 - Green Co,$35,3.5,Blue Dream\n" +
	"Granddaddy Purple,Flower,indica,Acme,Green Co,$40,3.5,Granddaddy Purple\n" +
	"Sour Gummies,Edible (Solid),,Chewz,Green Co,$12,100,\n"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(catalogCSV), 0o600))
	return path
}

func TestGenerate(t *testing.T) {
	input := writeCatalog(t)
	out := filepath.Join(t.TempDir(), "labels.html")

	_, stderr, err := run(t, "generate", "--store", "memory", "--input", input, "--out", out, "--template", "mini", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "3 records")

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Blue Dream Flower")
	assert.Contains(t, string(html), "Granddaddy Purple")
}

func TestGenerateFiltersToStdout(t *testing.T) {
	input := writeCatalog(t)

	stdout, _, err := run(t, "generate", "--store", "memory", "--input", input, "--out", "-", "--lineage", "indica", "--sort", "price")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Granddaddy Purple")
	assert.NotContains(t, stdout, "Blue Dream Flower")
}

func TestGenerateRejectsInvalidConfiguration(t *testing.T) {
	input := writeCatalog(t)
	out := filepath.Join(t.TempDir(), "labels.html")

	tests := []struct {
		name string
		args []string
	}{
		{name: "zero workers", args: []string{"--workers", "0"}},
		{name: "unknown template", args: []string{"--template", "poster"}},
		{name: "unknown sort", args: []string{"--sort", "colour"}},
		{name: "unknown lineage filter", args: []string{"--lineage", "purple"}},
		{name: "unknown store", args: []string{"--store", "cassandra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"generate", "--store", "memory", "--input", input, "--out", out}, tt.args...)
			_, _, err := run(t, args...)
			require.Error(t, err)
			_, statErr := os.Stat(out)
			assert.True(t, os.IsNotExist(statErr), "no output written for invalid configuration")
		})
	}
}

func TestNormalize(t *testing.T) {
	input := writeCatalog(t)

	stdout, _, err := run(t, "normalize", "--store", "memory", "--input", input)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4, "header plus one row per record")
	assert.Contains(t, lines[1], "Green Co")
	assert.NotContains(t, lines[1], "12345")
}

func TestLineageCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "lineage.db")
	cmd := func(args ...string) []string {
		return append(append([]string{"lineage"}, args...), "--store", "sqlite", "--sqlite-path", db)
	}

	stdout, _, err := run(t, cmd("set", "Blue Dream", "hybrid sativa")...)
	require.NoError(t, err)
	var set models.Override
	require.NoError(t, json.Unmarshal([]byte(stdout), &set))
	assert.Equal(t, "blue dream", set.Strain)
	assert.True(t, set.Sovereign)

	stdout, _, err = run(t, cmd("get", "BLUE DREAM")...)
	require.NoError(t, err)
	var got models.Override
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, set.Lineage, got.Lineage)

	stdout, _, err = run(t, cmd("list")...)
	require.NoError(t, err)
	var list []models.Override
	require.NoError(t, json.Unmarshal([]byte(stdout), &list))
	assert.Len(t, list, 1)

	_, _, err = run(t, cmd("delete", "blue dream")...)
	require.NoError(t, err)
	_, _, err = run(t, cmd("get", "blue dream")...)
	assert.Error(t, err)

	_, _, err = run(t, cmd("set", "gelato", "purple")...)
	assert.Error(t, err)
}
