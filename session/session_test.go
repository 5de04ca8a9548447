package session

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xtaci/stripecodec/codecerr"
	"github.com/xtaci/stripecodec/metafile"
)

func testMeta() metafile.Meta {
	return metafile.Meta{
		K:          10,
		M:          4,
		W:          8,
		PacketSize: 4,
		BufferSize: 1 << 20,
	}
}

func decodedBytes(t *testing.T, dir, name string) []byte {
	t.Helper()
	ext := filepath.Ext(name)
	base := name[:len(name)-len(ext)]
	b, err := os.ReadFile(filepath.Join(dir, base+"_decoded"+ext))
	require.NoError(t, err)
	return b
}

func TestEncodeDecodeRoundTripNoErasures(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 83)
	rng.Read(data)

	enc, err := New(testMeta(), dir, "report.bin")
	require.NoError(t, err)
	require.NoError(t, enc.EncodeFile(data))

	meta, err := metafile.Read(filepath.Join(dir, "report_meta.txt"))
	require.NoError(t, err)

	dec, err := New(meta, dir, "report.bin")
	require.NoError(t, err)
	state, err := dec.DecodeFile()
	require.NoError(t, err)
	require.Equal(t, StateEmit, state)

	require.Equal(t, data, decodedBytes(t, dir, "report.bin"))
}

func TestEncodeDecodeSingleDataErasureRepairs(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(7))
	data := make([]byte, 320) // exactly one read-in
	rng.Read(data)

	enc, err := New(testMeta(), dir, "image.bin")
	require.NoError(t, err)
	require.NoError(t, enc.EncodeFile(data))

	require.NoError(t, os.Remove(filepath.Join(dir, "image_k00.bin")))

	meta, err := metafile.Read(filepath.Join(dir, "image_meta.txt"))
	require.NoError(t, err)
	dec, err := New(meta, dir, "image.bin")
	require.NoError(t, err)
	state, err := dec.DecodeFile()
	require.NoError(t, err)
	require.Equal(t, StateEmit, state)

	require.Equal(t, data, decodedBytes(t, dir, "image.bin"))
}

func TestEncodeDecodeTwoDataErasuresFallsBackToRSDecode(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(8))
	data := make([]byte, 320)
	rng.Read(data)

	enc, err := New(testMeta(), dir, "video.bin")
	require.NoError(t, err)
	require.NoError(t, enc.EncodeFile(data))

	// Erase two columns that are partners at the same pairing level, so
	// the level still inverts cleanly (both sides zero) and no spillover
	// erasure is needed.
	require.NoError(t, os.Remove(filepath.Join(dir, "video_k00.bin")))
	require.NoError(t, os.Remove(filepath.Join(dir, "video_k01.bin")))

	meta, err := metafile.Read(filepath.Join(dir, "video_meta.txt"))
	require.NoError(t, err)
	dec, err := New(meta, dir, "video.bin")
	require.NoError(t, err)
	state, err := dec.DecodeFile()
	require.NoError(t, err)
	require.Equal(t, StateEmit, state)

	require.Equal(t, data, decodedBytes(t, dir, "video.bin"))
}

func TestEncodeDecodeTwoDataErasuresAcrossLevelsWithSpillover(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(9))
	data := make([]byte, 320)
	rng.Read(data)

	enc, err := New(testMeta(), dir, "audio.bin")
	require.NoError(t, err)
	require.NoError(t, enc.EncodeFile(data))

	// Column 0 (level 0, colB) and column 2 (level 1, colB) are lost: each
	// level has exactly one side erased, so their partners (1 and 3) need
	// to be folded into the RS erasure set too.
	require.NoError(t, os.Remove(filepath.Join(dir, "audio_k00.bin")))
	require.NoError(t, os.Remove(filepath.Join(dir, "audio_k02.bin")))

	meta, err := metafile.Read(filepath.Join(dir, "audio_meta.txt"))
	require.NoError(t, err)
	dec, err := New(meta, dir, "audio.bin")
	require.NoError(t, err)
	state, err := dec.DecodeFile()
	require.NoError(t, err)
	require.Equal(t, StateEmit, state)

	require.Equal(t, data, decodedBytes(t, dir, "audio.bin"))
}

func TestDecodeTooManyErasuresFails(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(10))
	data := make([]byte, 320)
	rng.Read(data)

	enc, err := New(testMeta(), dir, "huge.bin")
	require.NoError(t, err)
	require.NoError(t, enc.EncodeFile(data))

	meta, err := metafile.Read(filepath.Join(dir, "huge_meta.txt"))
	require.NoError(t, err)
	dec, err := New(meta, dir, "huge.bin")
	require.NoError(t, err)

	for _, i := range []int{0, 1, 2, 3, 4} {
		require.NoError(t, os.Remove(dec.dataPath(i)))
	}

	_, err = dec.DecodeFile()
	require.ErrorIs(t, err, codecerr.ErrDecodeInfeasible)
}

func TestRepairNodeReconstructsInPlace(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(13))
	data := make([]byte, 320)
	rng.Read(data)

	enc, err := New(testMeta(), dir, "clip.bin")
	require.NoError(t, err)
	require.NoError(t, enc.EncodeFile(data))

	original, err := os.ReadFile(enc.dataPath(0))
	require.NoError(t, err)
	require.NoError(t, os.Remove(enc.dataPath(0)))

	meta, err := metafile.Read(filepath.Join(dir, "clip_meta.txt"))
	require.NoError(t, err)
	repairer, err := New(meta, dir, "clip.bin")
	require.NoError(t, err)
	require.NoError(t, repairer.RepairNode(0))

	got, err := os.ReadFile(repairer.dataPath(0))
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestRepairNodeRejectsPresentColumn(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(14))
	data := make([]byte, 320)
	rng.Read(data)

	enc, err := New(testMeta(), dir, "present.bin")
	require.NoError(t, err)
	require.NoError(t, enc.EncodeFile(data))

	meta, err := metafile.Read(filepath.Join(dir, "present_meta.txt"))
	require.NoError(t, err)
	repairer, err := New(meta, dir, "present.bin")
	require.NoError(t, err)
	require.Error(t, repairer.RepairNode(0))
}

func TestNewRejectsBadMetadata(t *testing.T) {
	dir := t.TempDir()
	bad := testMeta()
	bad.K = 0
	_, err := New(bad, dir, "x.bin")
	require.ErrorIs(t, err, codecerr.ErrBadMetadata)
}
