package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	dc "github.com/wgdzlh/datacube"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestArgumentErrors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "datacube.db")
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "x out of range",
			args: []string{"retrieve-dataset", "--x", "200", "--y", "-20", "--output-directory", dir},
			want: "argument --x: 200 is not in range [110 - 155]",
		},
		{
			name: "bad satellite",
			args: []string{"retrieve-dataset", "--x", "120", "--y", "-20", "--output-directory", dir, "--satellite", "LS9"},
			want: "argument --satellite: LS9 is not a supported satellite",
		},
		{
			name: "bad acq date",
			args: []string{"retrieve-dataset-stack", "--x", "120", "--y", "-20", "--output-directory", dir, "--acq-min", "2005-13"},
			want: "argument --acq-min: 2005-13 is not a valid date",
		},
		{
			name: "missing output directory",
			args: []string{"retrieve-dataset", "--x", "120", "--y", "-20", "--output-directory", filepath.Join(dir, "nope")},
			want: "doesn't exist",
		},
		{
			name: "chunk size",
			args: []string{"workflow", "summary", "--database", db, "--output-directory", dir, "--band", "RED", "--chunk-size-x", "0"},
			want: "argument --chunk-size-x: 0 is not in range [1 - 4000]",
		},
		{
			name: "sort order",
			args: []string{"list-tiles", "--database", db, "--sort", "SIDEWAYS"},
			want: "argument --sort: SIDEWAYS is not a supported sort order",
		},
		{
			name: "quiet and verbose",
			args: []string{"list-cells", "--quiet", "--verbose"},
			want: "none of the others can be",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestArgumentErrorType(t *testing.T) {
	_, err := execute(t, "list-cells", "--database", filepath.Join(t.TempDir(), "c.db"), "--y-min", "-50")
	var ae *dc.ArgumentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "--y-min", ae.Arg)
	assert.Equal(t, "-50", ae.Value)
}

func TestListCellsMissing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "datacube.db")
	out, err := execute(t, "list-cells", "--database", db, "--missing",
		"--x-min", "120", "--x-max", "121", "--y-min", "-20", "--y-max", "-20")
	require.NoError(t, err)
	assert.Equal(t, "x_index,y_index,count\n120,-20,0\n121,-20,0\n", out)

	out, err = execute(t, "list-cells", "--database", db, "--x-min", "120", "--x-max", "121")
	require.NoError(t, err)
	assert.Equal(t, "x_index,y_index,count\n", out)
}

func TestCatalogMigrate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "datacube.db")
	out, err := execute(t, "catalog", "migrate", "--database", db)
	require.NoError(t, err)
	assert.Contains(t, out, "at version 1")

	out, err = execute(t, "catalog", "migrate", "down", "--database", db)
	require.NoError(t, err)
	assert.Contains(t, out, "at version 0")

	_, err = execute(t, "catalog", "migrate", "sideways", "--database", db)
	require.Error(t, err)
}

func TestTestDBCommands(t *testing.T) {
	t.Setenv("DATACUBE_TESTDB_DIR", t.TempDir())

	_, err := execute(t, "testdb", "create", "hypercube_empty")
	require.NoError(t, err)
	_, err = execute(t, "testdb", "create", "test_datacube_123456789")
	require.NoError(t, err)

	out, err := execute(t, "testdb", "list")
	require.NoError(t, err)
	assert.Equal(t, "hypercube_empty\ntest_datacube_123456789\n", out)

	out, err = execute(t, "dbcleanup")
	require.NoError(t, err)
	assert.Equal(t, "Dropping temporary test databases:\n    test_datacube_123456789\n", out)

	out, err = execute(t, "testdb", "cleanup")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "    nothing to do.\n"))

	_, err = execute(t, "testdb", "drop", "hypercube_empty")
	require.NoError(t, err)
	out, err = execute(t, "testdb", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}
