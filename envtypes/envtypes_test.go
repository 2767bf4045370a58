package envtypes

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  HostPort
		str   string
	}{
		{input: "127.0.0.1:3000", want: HostPort{Host: "127.0.0.1", Port: 3000}, str: "127.0.0.1:3000"},
		{input: ":8080", want: HostPort{Port: 8080}, str: ":8080"},
		{input: "[::1]:0", want: HostPort{Host: "::1"}, str: "[::1]:0"},
		{input: "localhost:65535", want: HostPort{Host: "localhost", Port: 65535}, str: "localhost:65535"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseHostPort(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
			assert.Equal(t, test.str, got.String())
		})
	}
}

func TestParseHostPortErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "localhost", "host:port", "host:65536", "host:-1"} {
		_, err := ParseHostPort(input)
		require.ErrorIs(t, err, ErrBadHostPort, input)
	}
}

func TestStatFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: []\n"), 0o600))

	local, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, local.Path)
	assert.Equal(t, int64(13), local.Info.Size())

	_, err = StatFile(dir)
	require.ErrorIs(t, err, ErrNotAFile)

	_, err = StatFile(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}
