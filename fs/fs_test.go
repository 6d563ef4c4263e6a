package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/edabot"
	"github.com/fwojciec/edabot/fs"
	"github.com/fwojciec/edabot/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	t.Run("csv path", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, t.TempDir(), "sales.csv", "a,b\n1,4\n2,5\n")
		ds, err := fs.NewLoader().Load(context.Background(), edabot.Attachment{URL: path})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ds.Columns)
		assert.Equal(t, 2, ds.Len())
	})

	t.Run("file url with tsv name", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, t.TempDir(), "sales.tsv", "a\tb\n1\t4\n")
		ds, err := fs.NewLoader().Load(context.Background(), edabot.Attachment{URL: "file://" + filepath.ToSlash(path)})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ds.Columns)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := fs.NewLoader().Load(context.Background(), edabot.Attachment{URL: filepath.Join(t.TempDir(), "none.csv")})
		assert.ErrorIs(t, err, edabot.ErrNoDataset)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("size cap", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, t.TempDir(), "big.csv", "a\n1\n2\n3\n4\n5\n")
		_, err := fs.NewLoader(fs.WithMaxBytes(4)).Load(context.Background(), edabot.Attachment{URL: path})
		assert.ErrorIs(t, err, edabot.ErrNoDataset)
	})

	t.Run("remote goes to the fallback", func(t *testing.T) {
		t.Parallel()
		want := &edabot.Dataset{Columns: []string{"x"}}
		fallback := &mock.DatasetLoader{
			LoadFn: func(ctx context.Context, a edabot.Attachment) (*edabot.Dataset, error) {
				assert.Equal(t, "https://files.example/a.csv", a.URL)
				return want, nil
			},
		}
		ds, err := fs.NewLoader(fs.WithFallback(fallback)).Load(context.Background(), edabot.Attachment{URL: "https://files.example/a.csv"})
		require.NoError(t, err)
		assert.Same(t, want, ds)
	})

	t.Run("remote without fallback", func(t *testing.T) {
		t.Parallel()
		_, err := fs.NewLoader().Load(context.Background(), edabot.Attachment{URL: "https://files.example/a.csv"})
		assert.ErrorIs(t, err, edabot.ErrNoDataset)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("remote url", func(t *testing.T) {
		t.Parallel()
		a, err := fs.Resolve("https://files.example/dir/report.xlsx?sig=1")
		require.NoError(t, err)
		assert.Equal(t, "https://files.example/dir/report.xlsx?sig=1", a.URL)
		assert.Equal(t, "report.xlsx", a.Name)
	})

	t.Run("single glob match", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := writeFile(t, dir, "nested/deep/data.csv", "a\n1\n")
		writeFile(t, dir, "nested/notes.txt", "x")
		a, err := fs.Resolve(filepath.Join(dir, "**", "*.csv"))
		require.NoError(t, err)
		assert.Equal(t, path, a.URL)
		assert.Equal(t, "data.csv", a.Name)
	})

	t.Run("ambiguous glob", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "a.csv", "a\n")
		writeFile(t, dir, "b.csv", "b\n")
		_, err := fs.Resolve(filepath.Join(dir, "*.csv"))
		assert.ErrorContains(t, err, "matches 2 files")
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		_, err := fs.Resolve(filepath.Join(t.TempDir(), "*.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestIsRemote(t *testing.T) {
	t.Parallel()
	assert.True(t, fs.IsRemote("https://x.example/a.csv"))
	assert.True(t, fs.IsRemote("http://x.example"))
	assert.False(t, fs.IsRemote("file:///tmp/a.csv"))
	assert.False(t, fs.IsRemote("data/a.csv"))
	assert.False(t, fs.IsRemote("C:\\data\\a.csv"))
}
