package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

// Chain failures the pipeline classifies for user-facing log entries.
var (
	ErrInsufficientFunds = errors.New("insufficient funds for transaction")
	ErrTxReverted        = errors.New("transaction reverted on chain")
)

// ChainService is the contract surface. All state-changing calls are
// serialized through a single submitter goroutine that owns the account
// nonce, so concurrent workers never race on nonce assignment.
type ChainService interface {
	RegisterPath(ctx context.Context, pathID uuid.UUID, contentHash [32]byte) (txHash string, err error)
	MintCertificate(ctx context.Context, toWallet string, pathID uuid.UUID) (tokenID int64, txHash string, err error)
	SetTokenURI(ctx context.Context, tokenID int64, uri string) (txHash string, err error)
	HasUserMinted(ctx context.Context, wallet string, pathID uuid.UUID) (bool, error)
	ExplorerTxURL(txHash string) string
	ContractAddress() string
}

const kodoContractABI = `[
  {"type":"function","name":"registerPath","stateMutability":"nonpayable","inputs":[{"name":"pathId","type":"uint256"},{"name":"contentHash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"mintCertificate","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"pathId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"setTokenURI","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"},{"name":"uri","type":"string"}],"outputs":[]},
  {"type":"function","name":"hasUserMinted","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"pathId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false}
]`

// PathTokenID maps a path uuid onto the contract's uint256 key space.
func PathTokenID(pathID uuid.UUID) *big.Int {
	return new(big.Int).SetBytes(pathID[:])
}

type ethChainService struct {
	client       *ethclient.Client
	privateKey   *ecdsa.PrivateKey
	fromAddress  common.Address
	chainID      *big.Int
	contractAddr common.Address
	contractABI  abi.ABI
	explorerBase string
	receiptWait  time.Duration
	submitCh     chan *txRequest
	log          *logger.Logger
}

type txRequest struct {
	ctx    context.Context
	method string
	args   []any
	result chan txResult
}

type txResult struct {
	receipt *gethtypes.Receipt
	txHash  common.Hash
	err     error
}

func NewEthChainService(ctx context.Context, baseLog *logger.Logger) (ChainService, error) {
	log := baseLog.With("service", "ChainService")

	rpcURL := utils.GetEnv("CHAIN_RPC_URL", "", log)
	contractAddr := utils.GetEnv("CHAIN_CONTRACT_ADDRESS", "", log)
	privateKeyHex := utils.GetEnv("CHAIN_PRIVATE_KEY", "", log)
	if rpcURL == "" || contractAddr == "" || privateKeyHex == "" {
		return nil, errors.New("chain integration requires CHAIN_RPC_URL, CHAIN_CONTRACT_ADDRESS and CHAIN_PRIVATE_KEY")
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse chain private key: %w", err)
	}
	parsedABI, err := abi.JSON(strings.NewReader(kodoContractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	s := &ethChainService{
		client:       client,
		privateKey:   privateKey,
		fromAddress:  crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:      chainID,
		contractAddr: common.HexToAddress(contractAddr),
		contractABI:  parsedABI,
		explorerBase: strings.TrimRight(utils.GetEnv("CHAIN_EXPLORER_BASE_URL", "https://sepolia.etherscan.io", log), "/"),
		receiptWait:  time.Duration(utils.GetEnvAsInt("CHAIN_RECEIPT_TIMEOUT_SECONDS", 180, log)) * time.Second,
		submitCh:     make(chan *txRequest),
		log:          log,
	}
	go s.runSubmitter(ctx)

	log.Info("Chain service connected", "chainID", chainID.String(), "contract", contractAddr)
	return s, nil
}

// runSubmitter is the only goroutine that signs and sends transactions.
// It fetches the pending nonce once, then hands out sequential nonces;
// any send failure re-syncs from the node before the next transaction.
func (s *ethChainService) runSubmitter(ctx context.Context) {
	var (
		nonce     uint64
		nonceInit bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-s.submitCh:
			if !ok {
				return
			}
			if !nonceInit {
				n, err := s.client.PendingNonceAt(req.ctx, s.fromAddress)
				if err != nil {
					req.result <- txResult{err: fmt.Errorf("fetch nonce: %w", err)}
					continue
				}
				nonce = n
				nonceInit = true
			}
			res := s.sendAndWait(req.ctx, req.method, nonce, req.args...)
			if res.err != nil {
				// Whatever went wrong, the local nonce may no longer match the
				// node's view. Re-sync before the next transaction.
				nonceInit = false
			} else {
				nonce++
			}
			req.result <- res
		}
	}
}

func (s *ethChainService) sendAndWait(ctx context.Context, method string, nonce uint64, args ...any) txResult {
	input, err := s.contractABI.Pack(method, args...)
	if err != nil {
		return txResult{err: fmt.Errorf("pack %s: %w", method, err)}
	}

	tipCap, err := s.client.SuggestGasTipCap(ctx)
	if err != nil {
		return txResult{err: fmt.Errorf("suggest gas tip: %w", err)}
	}
	head, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return txResult{err: fmt.Errorf("fetch head: %w", err)}
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit, err := s.client.EstimateGas(ctx, buildCallMsg(s.fromAddress, s.contractAddr, input))
	if err != nil {
		return txResult{err: classifyChainError(fmt.Errorf("estimate gas for %s: %w", method, err))}
	}
	// Headroom over the estimate; unused gas is refunded.
	gasLimit = gasLimit * 12 / 10

	tx := gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &s.contractAddr,
		Data:      input,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return txResult{err: fmt.Errorf("sign %s: %w", method, err)}
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return txResult{err: classifyChainError(fmt.Errorf("send %s: %w", method, err))}
	}
	s.log.Info("Transaction submitted", "method", method, "tx", signed.Hash().Hex(), "nonce", nonce)

	waitCtx, cancel := context.WithTimeout(ctx, s.receiptWait)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, s.client, signed)
	if err != nil {
		return txResult{txHash: signed.Hash(), err: fmt.Errorf("wait for %s receipt: %w", method, err)}
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return txResult{txHash: signed.Hash(), receipt: receipt, err: fmt.Errorf("%w: %s", ErrTxReverted, signed.Hash().Hex())}
	}
	return txResult{txHash: signed.Hash(), receipt: receipt}
}

func (s *ethChainService) submit(ctx context.Context, method string, args ...any) (txResult, error) {
	req := &txRequest{ctx: ctx, method: method, args: args, result: make(chan txResult, 1)}
	select {
	case <-ctx.Done():
		return txResult{}, ctx.Err()
	case s.submitCh <- req:
	}
	select {
	case <-ctx.Done():
		return txResult{}, ctx.Err()
	case res := <-req.result:
		return res, res.err
	}
}

func (s *ethChainService) RegisterPath(ctx context.Context, pathID uuid.UUID, contentHash [32]byte) (string, error) {
	res, err := s.submit(ctx, "registerPath", PathTokenID(pathID), contentHash)
	if err != nil {
		return "", err
	}
	return res.txHash.Hex(), nil
}

func (s *ethChainService) MintCertificate(ctx context.Context, toWallet string, pathID uuid.UUID) (int64, string, error) {
	res, err := s.submit(ctx, "mintCertificate", common.HexToAddress(toWallet), PathTokenID(pathID))
	if err != nil {
		return 0, "", err
	}
	tokenID, err := tokenIDFromReceipt(s.contractABI, res.receipt)
	if err != nil {
		return 0, res.txHash.Hex(), err
	}
	return tokenID, res.txHash.Hex(), nil
}

func (s *ethChainService) SetTokenURI(ctx context.Context, tokenID int64, uri string) (string, error) {
	res, err := s.submit(ctx, "setTokenURI", big.NewInt(tokenID), uri)
	if err != nil {
		return "", err
	}
	return res.txHash.Hex(), nil
}

func (s *ethChainService) HasUserMinted(ctx context.Context, wallet string, pathID uuid.UUID) (bool, error) {
	input, err := s.contractABI.Pack("hasUserMinted", common.HexToAddress(wallet), PathTokenID(pathID))
	if err != nil {
		return false, err
	}
	out, err := s.client.CallContract(ctx, buildCallMsg(s.fromAddress, s.contractAddr, input), nil)
	if err != nil {
		return false, err
	}
	results, err := s.contractABI.Unpack("hasUserMinted", out)
	if err != nil {
		return false, err
	}
	if len(results) != 1 {
		return false, errors.New("unexpected hasUserMinted result arity")
	}
	minted, ok := results[0].(bool)
	if !ok {
		return false, errors.New("unexpected hasUserMinted result type")
	}
	return minted, nil
}

func (s *ethChainService) ExplorerTxURL(txHash string) string {
	return s.explorerBase + "/tx/" + txHash
}

func (s *ethChainService) ContractAddress() string {
	return s.contractAddr.Hex()
}

// tokenIDFromReceipt extracts the minted token id from the ERC-721 Transfer
// event, where tokenId is the third indexed topic.
func tokenIDFromReceipt(contractABI abi.ABI, receipt *gethtypes.Receipt) (int64, error) {
	if receipt == nil {
		return 0, errors.New("nil receipt")
	}
	transferSig := contractABI.Events["Transfer"].ID
	for _, logEntry := range receipt.Logs {
		if len(logEntry.Topics) == 4 && logEntry.Topics[0] == transferSig {
			return new(big.Int).SetBytes(logEntry.Topics[3].Bytes()).Int64(), nil
		}
	}
	return 0, errors.New("no Transfer event in mint receipt")
}

func buildCallMsg(from, to common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: &to, Data: data}
}

func classifyChainError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "insufficient funds") {
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}
	if strings.Contains(msg, "execution reverted") {
		return fmt.Errorf("%w: %v", ErrTxReverted, err)
	}
	return err
}
