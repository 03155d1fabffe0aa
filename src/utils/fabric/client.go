package fabric

import (
	"fmt"
	"os"
	"path/filepath"

	appconfig "github.com/rwa-portal/anchorgate/src/utils/config"
	l "github.com/rwa-portal/anchorgate/src/utils/logger"

	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/sirupsen/logrus"
)

// Client wraps the Fabric gateway connection used to anchor records
// on the permissioned ledger
type Client struct {
	log      *logrus.Entry
	gw       *gateway.Gateway
	network  *gateway.Network
	contract *gateway.Contract
}

func NewClient(conf *appconfig.Fabric) (self *Client, err error) {
	self = new(Client)
	self.log = l.NewSublogger("fabric")

	wallet, err := gateway.NewFileSystemWallet(conf.WalletPath)
	if err != nil {
		err = fmt.Errorf("failed to create wallet: %w", err)
		return
	}

	if !wallet.Exists(conf.Identity) {
		err = populateWallet(wallet, conf)
		if err != nil {
			err = fmt.Errorf("failed to populate wallet: %w", err)
			return
		}
	}

	self.gw, err = gateway.Connect(
		gateway.WithConfig(config.FromFile(filepath.Clean(conf.ConnectionProfilePath))),
		gateway.WithIdentity(wallet, conf.Identity),
	)
	if err != nil {
		err = fmt.Errorf("failed to connect to gateway: %w", err)
		return
	}

	self.network, err = self.gw.GetNetwork(conf.ChannelName)
	if err != nil {
		err = fmt.Errorf("failed to get network: %w", err)
		return
	}

	self.contract = self.network.GetContract(conf.ChaincodeName)

	self.log.WithField("channel", conf.ChannelName).
		WithField("chaincode", conf.ChaincodeName).
		Info("Connected to Fabric")
	return
}

// Submit invokes a chaincode transaction and waits for commit
func (self *Client) Submit(name string, args ...string) ([]byte, error) {
	return self.contract.SubmitTransaction(name, args...)
}

// Evaluate queries chaincode without a transaction
func (self *Client) Evaluate(name string, args ...string) ([]byte, error) {
	return self.contract.EvaluateTransaction(name, args...)
}

func (self *Client) Close() {
	self.gw.Close()
}

func populateWallet(wallet *gateway.Wallet, conf *appconfig.Fabric) error {
	cert, err := os.ReadFile(filepath.Clean(conf.CertPath))
	if err != nil {
		return err
	}

	key, err := os.ReadFile(filepath.Clean(conf.KeyPath))
	if err != nil {
		return err
	}

	identity := gateway.NewX509Identity(conf.MspId, string(cert), string(key))

	return wallet.Put(conf.Identity, identity)
}
