package agent

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildArchiveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001-out.log"), []byte("hello"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "001-data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001-data", "f.txt"), []byte("world"), 0o644))

	archive, err := BuildArchive(dir)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	found := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if hdr.Typeflag == tar.TypeReg {
			content, err := io.ReadAll(tr)
			require.NoError(t, err)
			found[hdr.Name] = string(content)
		}
	}

	require.Equal(t, "hello", found["001-out.log"])
	require.Equal(t, "world", found[filepath.Join("001-data", "f.txt")])
}
