package transaction

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	eth_common "github.com/ethereum/go-ethereum/common"
	eth_types "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the private key of the wallet.
type Signer struct {
	key     *ecdsa.PrivateKey
	address eth_common.Address
}

// NewSigner parses the hex encoded private key. The 0x prefix is optional.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto.HexToECDSA: %w", err)
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address of the wallet
func (s *Signer) Address() eth_common.Address {
	return s.address
}

// Sign the transaction for the given chain.
func (s *Signer) Sign(tx *eth_types.Transaction, chainID *big.Int) (*eth_types.Transaction, error) {
	signed, err := eth_types.SignTx(tx, eth_types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("types.SignTx: %w", err)
	}
	return signed, nil
}
