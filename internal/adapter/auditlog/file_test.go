package auditlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_AppendCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cwop.log")
	f := NewFile(path)

	require.NoError(t, f.Append("13/03/07 09:05:03 N6TVE-11>one\r\n"))
	require.NoError(t, f.Append("13/03/07 09:06:03 N6TVE-11>two\r\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "13/03/07 09:05:03 N6TVE-11>one\r\n13/03/07 09:06:03 N6TVE-11>two\r\n", string(data))
}

func TestFile_AppendKeepsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cwop.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, NewFile(path).Append("new\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestFile_AppendMissingDirectory(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "missing", "cwop.log"))
	err := f.Append("x\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open audit log")
}
