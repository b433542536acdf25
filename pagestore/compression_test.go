package pagestore

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressPage(t *testing.T) {
	random := make([]byte, 4096)
	_, _ = rand.Read(random)

	inputs := map[string][]byte{
		"empty":          {},
		"repetitive":     bytes.Repeat([]byte(`{"leaf":true,"vec":[0.5,0.5]}`), 100),
		"incompressible": random,
	}

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		for name, raw := range inputs {
			t.Run(c.String()+"/"+name, func(t *testing.T) {
				packed, err := compressPage(raw, c)
				require.NoError(t, err)

				got, err := decompressPage(packed, c)
				require.NoError(t, err)
				assert.Equal(t, len(raw), len(got))
				assert.True(t, bytes.Equal(raw, got))
			})
		}
	}
}

func TestCompressPageShrinksRepetitiveData(t *testing.T) {
	raw := bytes.Repeat([]byte("0123456789abcdef"), 512)

	for _, c := range []Compression{CompressionLZ4, CompressionZstd} {
		packed, err := compressPage(raw, c)
		require.NoError(t, err)
		assert.Less(t, len(packed), len(raw)/4, c.String())
	}
}

func TestDecompressPageRejectsGarbage(t *testing.T) {
	_, err := decompressPage([]byte{1, 2, 3}, CompressionLZ4)
	assert.ErrorIs(t, err, errBadPage)

	// Header claims more raw bytes than present.
	_, err = decompressPage([]byte{10, 0, 0, 0, 0, 0, 0, 0, 1}, CompressionNone)
	assert.ErrorIs(t, err, errBadPage)

	// Compressed page read with no decompressor.
	packed, err := compressPage(bytes.Repeat([]byte("a"), 1024), CompressionLZ4)
	require.NoError(t, err)
	_, err = decompressPage(packed, CompressionNone)
	assert.ErrorIs(t, err, errBadPage)
}

func TestCompressionString(t *testing.T) {
	assert.Equal(t, "lz4", CompressionLZ4.String())
	assert.Equal(t, "Compression(9)", Compression(9).String())
}
