package eth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	appconfig "github.com/rwa-portal/anchorgate/src/utils/config"
	l "github.com/rwa-portal/anchorgate/src/utils/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// Minimal ABI of the token contract's mint entry point
const mintAbiJson = `[{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

// Client submits mint transactions to the public chain and waits
// for confirmation
type Client struct {
	log  *logrus.Entry
	conf *appconfig.Minter

	client     *ethclient.Client
	abi        abi.ABI
	privateKey *ecdsa.PrivateKey
	from       common.Address
	contract   common.Address
	chainId    *big.Int

	// Serializes nonce assignment between concurrent mints
	mtx sync.Mutex
}

func NewClient(conf *appconfig.Minter) (self *Client, err error) {
	self = new(Client)
	self.log = l.NewSublogger("eth")
	self.conf = conf

	if !common.IsHexAddress(conf.ContractAddress) {
		err = errors.New("minter contract address is not a valid address")
		return
	}
	self.contract = common.HexToAddress(conf.ContractAddress)
	self.chainId = big.NewInt(conf.ChainId)

	self.abi, err = abi.JSON(strings.NewReader(mintAbiJson))
	if err != nil {
		return
	}

	self.privateKey, err = crypto.HexToECDSA(strings.TrimPrefix(conf.PrivateKey, "0x"))
	if err != nil {
		err = fmt.Errorf("failed to parse minter private key: %w", err)
		return
	}
	self.from = crypto.PubkeyToAddress(self.privateKey.PublicKey)

	self.client, err = ethclient.Dial(conf.RpcProviderUrl)
	if err != nil {
		self.log.WithError(err).Error("Cannot get ETH client")
		return
	}

	self.log.WithField("from", self.from.Hex()).
		WithField("contract", self.contract.Hex()).
		Info("Connected to chain RPC")
	return
}

// Mint broadcasts mint(to, amount) and waits for the receipt within
// the caller's context. A non-empty txHash means the transaction was
// broadcast, even when the error is non-nil.
func (self *Client) Mint(ctx context.Context, to string, amount float64) (txHash string, err error) {
	data, err := self.abi.Pack("mint", common.HexToAddress(to), ToTokenUnits(amount, self.conf.TokenDecimals))
	if err != nil {
		// Encoding failures do not improve on retry
		err = fmt.Errorf("%w: encoding mint calldata: %s", apperr.ErrMintFailed, err)
		return
	}

	signed, err := self.buildAndBroadcast(ctx, data)
	if err != nil {
		return
	}
	txHash = signed.Hash().Hex()

	receipt, err := bind.WaitMined(ctx, self.client, signed)
	if err != nil {
		self.log.WithError(err).WithField("tx", txHash).Error("Waiting for mint confirmation failed")
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		err = fmt.Errorf("mint transaction %s reverted", txHash)
		return
	}
	return
}

func (self *Client) buildAndBroadcast(ctx context.Context, data []byte) (signed *types.Transaction, err error) {
	// Nonce assignment and broadcast have to happen under one lock,
	// otherwise two concurrent mints could reuse a nonce
	self.mtx.Lock()
	defer self.mtx.Unlock()

	nonce, err := self.client.PendingNonceAt(ctx, self.from)
	if err != nil {
		return
	}

	gasPrice, err := self.client.SuggestGasPrice(ctx)
	if err != nil {
		return
	}

	gasLimit, err := self.client.EstimateGas(ctx, ethereum.CallMsg{
		From: self.from,
		To:   &self.contract,
		Data: data,
	})
	if err != nil {
		return
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &self.contract,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err = types.SignTx(tx, types.LatestSignerForChainID(self.chainId), self.privateKey)
	if err != nil {
		return
	}

	err = self.client.SendTransaction(ctx, signed)
	return
}

// ToTokenUnits scales a reserve amount to the token's smallest unit
func ToTokenUnits(amount float64, decimals int) *big.Int {
	scaled := new(big.Float).Mul(big.NewFloat(amount), big.NewFloat(math.Pow10(decimals)))
	units, _ := scaled.Int(nil)
	return units
}
