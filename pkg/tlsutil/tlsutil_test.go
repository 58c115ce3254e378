package tlsutil

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDevCerts(t *testing.T) {
	dir := t.TempDir()
	paths, err := GenerateDevCerts([]string{"localhost", "127.0.0.1"}, dir, time.Hour)
	require.NoError(t, err)

	pair, err := tls.LoadX509KeyPair(paths.ServerCrt, paths.ServerKey)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Certificate)

	_, err = ServerTLSConfig(paths.ServerCrt, paths.ServerKey)
	require.NoError(t, err)
	_, err = ClientTLSConfig(paths.CA)
	require.NoError(t, err)

	info, err := os.Stat(paths.ServerKey)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestClientTLSConfig_Errors(t *testing.T) {
	_, err := ClientTLSConfig(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.pem")
	require.NoError(t, os.WriteFile(bogus, []byte("not a cert"), 0o600))
	_, err = ClientTLSConfig(bogus)
	assert.ErrorContains(t, err, "no certificates")
}

func TestServerTLSConfig_MissingFiles(t *testing.T) {
	_, err := ServerTLSConfig("nope.pem", "nope-key.pem")
	assert.Error(t, err)
}
