package metafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xtaci/stripecodec/codecerr"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "name_meta.txt")

	want := Meta{
		OriginalFilename: "report.pdf",
		OrigSize:         80,
		K:                10,
		M:                4,
		W:                8,
		PacketSize:       16,
		BufferSize:       1 << 20,
		Technique:        ReedSolomonVandermonde,
		ReadIns:          1,
	}
	require.NoError(t, Write(path, want))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
	require.ErrorIs(t, err, codecerr.ErrBadMetadata)
}

func TestReadRejectsBadK(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "name_meta.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"k":-1,"m":4,"w":8,"origsize":1,"packetsize":1,"buffersize":1,"readins":1}`), 0o644))

	_, err := Read(path)
	require.ErrorIs(t, err, codecerr.ErrBadMetadata)
}

func TestTechniqueString(t *testing.T) {
	require.Equal(t, "reed_sol_van", ReedSolomonVandermonde.String())
	require.Equal(t, "no_coding", NoCoding.String())
}
