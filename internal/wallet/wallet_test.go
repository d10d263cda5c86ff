package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIdentity(t *testing.T, keyFiles ...string) Identity {
	t.Helper()
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyDir := filepath.Join(dir, "keystore")
	require.NoError(t, os.WriteFile(certPath, []byte("CERT"), 0o600))
	require.NoError(t, os.MkdirAll(keyDir, 0o700))
	for _, name := range keyFiles {
		require.NoError(t, os.WriteFile(filepath.Join(keyDir, name), []byte(name), 0o600))
	}
	return Identity{OrgName: "Org1", UserName: "auditor", CertPath: certPath, KeyDir: keyDir}
}

func TestEnsure(t *testing.T) {
	id := writeIdentity(t, "abc_sk")
	w := gateway.NewInMemoryWallet()

	require.NoError(t, Ensure(w, id))

	assert.True(t, w.Exists("auditor"))
	stored, err := w.Get("auditor")
	require.NoError(t, err)
	x509, ok := stored.(*gateway.X509Identity)
	require.True(t, ok)
	assert.Equal(t, "Org1MSP", x509.MspID)
}

func TestEnsure_KeepsExistingIdentity(t *testing.T) {
	w := gateway.NewInMemoryWallet()
	require.NoError(t, w.Put("auditor", gateway.NewX509Identity("OtherMSP", "C", "K")))

	// Paths are never read when the label exists.
	require.NoError(t, Ensure(w, Identity{OrgName: "Org1", UserName: "auditor", CertPath: "/missing"}))

	stored, err := w.Get("auditor")
	require.NoError(t, err)
	assert.Equal(t, "OtherMSP", stored.(*gateway.X509Identity).MspID)
}

func TestEnsure_Errors(t *testing.T) {
	id := writeIdentity(t)
	id.KeyDir = filepath.Join(filepath.Dir(id.KeyDir), "missing")

	assert.Error(t, Ensure(gateway.NewInMemoryWallet(), id))
	assert.Error(t, Ensure(gateway.NewInMemoryWallet(), Identity{}))
}

func TestFindPrivateKey(t *testing.T) {
	id := writeIdentity(t, "README", "priv_sk")

	path, err := findPrivateKey(id.KeyDir)

	require.NoError(t, err)
	assert.Equal(t, "priv_sk", filepath.Base(path))
}

func TestFindPrivateKey_EmptyDir(t *testing.T) {
	_, err := findPrivateKey(t.TempDir())

	assert.ErrorContains(t, err, "no private key")
}
