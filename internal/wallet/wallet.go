// internal/wallet/wallet.go
package wallet

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

// Identity locates the enrolment material of the audit submitter.
type Identity struct {
	OrgName  string
	UserName string
	CertPath string
	KeyDir   string
}

func (id Identity) mspID() string {
	return id.OrgName + "MSP"
}

// Ensure stores the X.509 identity in w unless the label is already present.
func Ensure(w *gateway.Wallet, id Identity) error {
	if id.UserName == "" {
		return fmt.Errorf("wallet identity has no user name")
	}
	if w.Exists(id.UserName) {
		return nil
	}

	cert, err := os.ReadFile(filepath.Clean(id.CertPath))
	if err != nil {
		return fmt.Errorf("read certificate for %s: %w", id.UserName, err)
	}
	keyPath, err := findPrivateKey(id.KeyDir)
	if err != nil {
		return err
	}
	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return fmt.Errorf("read private key for %s: %w", id.UserName, err)
	}

	return w.Put(id.UserName, gateway.NewX509Identity(id.mspID(), string(cert), string(key)))
}

// findPrivateKey prefers a "*_sk" file, as written by fabric-ca-client, and
// falls back to the first regular file in dir.
func findPrivateKey(dir string) (string, error) {
	var first, sk string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if first == "" {
			first = path
		}
		if strings.HasSuffix(d.Name(), "_sk") {
			sk = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan keystore %s: %w", dir, err)
	}
	switch {
	case sk != "":
		return sk, nil
	case first != "":
		return first, nil
	}
	return "", fmt.Errorf("no private key found in directory %s", dir)
}
