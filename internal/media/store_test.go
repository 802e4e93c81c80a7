package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/yatube/internal/apperror"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// smallGIF is a 2x1 GIF image.
var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

func TestSave_StoresUnderPosts(t *testing.T) {
	s := NewStore(t.TempDir(), discardLogger)

	rel, err := s.Save(context.Background(), "small.gif", bytes.NewReader(smallGIF))
	require.NoError(t, err)
	assert.Equal(t, "posts/small.gif", rel)

	onDisk, err := os.ReadFile(s.Path(rel))
	require.NoError(t, err)
	assert.Equal(t, smallGIF, onDisk)
}

func TestSave_NameCollisionGetsSuffix(t *testing.T) {
	s := NewStore(t.TempDir(), discardLogger)

	first, err := s.Save(context.Background(), "small.gif", bytes.NewReader(smallGIF))
	require.NoError(t, err)
	second, err := s.Save(context.Background(), "small.gif", bytes.NewReader(smallGIF))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "posts/small_"), second)
	assert.True(t, strings.HasSuffix(second, ".gif"), second)
}

func TestSave_StripsClientDirectories(t *testing.T) {
	s := NewStore(t.TempDir(), discardLogger)

	rel, err := s.Save(context.Background(), `C:\Users\me\..\small.gif`, bytes.NewReader(smallGIF))
	require.NoError(t, err)
	assert.Equal(t, "posts/small.gif", rel)

	rel, err = s.Save(context.Background(), "../../etc/passwd.gif", bytes.NewReader(smallGIF))
	require.NoError(t, err)
	assert.Equal(t, "posts/passwd.gif", rel)
}

func TestSave_RejectsNonImages(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"text file", []byte("definitely not an image")},
		{"empty", nil},
		{"truncated gif", smallGIF[:8]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(t.TempDir(), discardLogger)

			_, err := s.Save(context.Background(), "fake.gif", bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, "image", apperror.FieldOf(err))

			_, statErr := os.Stat(s.Path("posts/fake.gif"))
			assert.True(t, os.IsNotExist(statErr), "rejected upload must not be written")
		})
	}
}

func TestSave_RejectsOversized(t *testing.T) {
	s := NewStore(t.TempDir(), discardLogger)
	big := append(append([]byte{}, smallGIF...), make([]byte, MaxImageSize)...)

	_, err := s.Save(context.Background(), "big.gif", bytes.NewReader(big))
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestRemove(t *testing.T) {
	s := NewStore(t.TempDir(), discardLogger)
	ctx := context.Background()

	rel, err := s.Save(ctx, "small.gif", bytes.NewReader(smallGIF))
	require.NoError(t, err)
	require.FileExists(t, s.Path(rel))

	s.Remove(ctx, rel)
	assert.NoFileExists(t, s.Path(rel))

	s.Remove(ctx, rel) // already gone
}
