package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

func TestFS_Write(t *testing.T) {
	root := filepath.Join(t.TempDir(), "output_oficios")
	fs, err := NewFS(root)
	require.NoError(t, err)

	require.NoError(t, fs.Write(context.Background(), "oficio_A1.docx", strings.NewReader("uno")))
	require.NoError(t, fs.Write(context.Background(), "oficio_A1.docx", strings.NewReader("dos")))

	b, err := os.ReadFile(filepath.Join(root, "oficio_A1.docx"))
	require.NoError(t, err)
	assert.Equal(t, "dos", string(b))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "временные файлы не должны оставаться")
}

func TestFS_RejectsPaths(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../x.docx", "sub/x.docx", "/etc/passwd"} {
		err := fs.Write(context.Background(), name, strings.NewReader("x"))
		assert.ErrorIs(t, err, contract.ErrPathInvalid, name)
	}

	_, err = NewFS(" ")
	assert.ErrorIs(t, err, contract.ErrIO)
}

func TestFS_Canceled(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, fs.Write(ctx, "a.pdf", strings.NewReader("x")), context.Canceled)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Write(context.Background(), "b", strings.NewReader("2")))
	require.NoError(t, m.Write(context.Background(), "a", strings.NewReader("1")))
	assert.Equal(t, []string{"a", "b"}, m.Names())

	m.Err = errors.New("disk full")
	m.FailOn = "c"
	require.NoError(t, m.Write(context.Background(), "d", strings.NewReader("4")))
	assert.ErrorIs(t, m.Write(context.Background(), "c", strings.NewReader("3")), contract.ErrIO)
}
