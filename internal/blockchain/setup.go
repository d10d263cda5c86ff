// server/internal/blockchain/setup.go
package blockchain

import (
	"fmt"
	"os"
	"path/filepath"

	"pharma-redistribution-api-server/config"
	"pharma-redistribution-api-server/internal/wallet"

	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

// Ledger is a gateway connection bound to the audit chaincode.
type Ledger struct {
	gw       *gateway.Gateway
	sdk      *fabsdk.FabricSDK
	contract *gateway.Contract
	channel  string
}

// Connect enrols the configured identity into a file wallet and opens the
// audit contract on cfg.ChannelName.
func Connect(cfg config.FabricConfig) (*Ledger, error) {
	if cfg.LocalDiscovery {
		os.Setenv("DISCOVERY_AS_LOCALHOST", "true")
	}

	fsWallet, err := gateway.NewFileSystemWallet(cfg.WalletPath)
	if err != nil {
		return nil, fmt.Errorf("open wallet %s: %w", cfg.WalletPath, err)
	}
	id := wallet.Identity{
		OrgName:  cfg.OrgName,
		UserName: cfg.UserName,
		CertPath: cfg.UserCertPath,
		KeyDir:   cfg.UserKeyDir,
	}
	if err := wallet.Ensure(fsWallet, id); err != nil {
		return nil, err
	}

	sdk, err := fabsdk.New(fabconfig.FromFile(filepath.Clean(cfg.ConnectionProfile)))
	if err != nil {
		return nil, fmt.Errorf("create fabric sdk: %w", err)
	}
	gw, err := gateway.Connect(gateway.WithSDK(sdk), gateway.WithIdentity(fsWallet, cfg.UserName))
	if err != nil {
		sdk.Close()
		return nil, fmt.Errorf("connect gateway as %s: %w", cfg.UserName, err)
	}
	network, err := gw.GetNetwork(cfg.ChannelName)
	if err != nil {
		gw.Close()
		sdk.Close()
		return nil, fmt.Errorf("get network %s: %w", cfg.ChannelName, err)
	}

	return &Ledger{
		gw:       gw,
		sdk:      sdk,
		contract: network.GetContract(cfg.ChaincodeName),
		channel:  cfg.ChannelName,
	}, nil
}

// SubmitTransaction endorses and commits fn on the audit contract.
func (l *Ledger) SubmitTransaction(fn string, args ...string) ([]byte, error) {
	return l.contract.SubmitTransaction(fn, args...)
}

func (l *Ledger) Channel() string { return l.channel }

func (l *Ledger) Close() {
	l.gw.Close()
	l.sdk.Close()
}
