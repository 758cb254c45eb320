package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// MaxDecimals is the largest precision for which one whole unit still fits in i128.
const MaxDecimals = 38

// Asset represents the metadata of a pool token.
// It is a reference entity with stable identity (AssetID).
// The symbol is NOT identity - just metadata for display.
type Asset struct {
	id       AssetID
	symbol   string
	decimals uint8
}

// NewAsset creates a new Asset with the given parameters.
func NewAsset(id AssetID, symbol string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > MaxDecimals {
		panic("asset: decimals exceed i128 precision")
	}

	return &Asset{
		id:       id,
		symbol:   symbol,
		decimals: decimals,
	}
}

// NewToken validates metadata read from a token contract and builds an Asset.
func NewToken(chainID uint64, addr common.Address, symbol string, decimals uint32) (*Asset, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("asset: zero token address")
	}
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("asset: token %s reports %d decimals", addr.Hex(), decimals)
	}
	if symbol == "" {
		symbol = addr.Hex()[:8]
	}
	return NewAsset(NewTokenAssetID(chainID, addr), symbol, uint8(decimals)), nil
}

// ID returns the unique identifier for this asset.
func (a *Asset) ID() AssetID {
	return a.id
}

// Symbol returns the ticker symbol.
func (a *Asset) Symbol() string {
	return a.symbol
}

// Decimals returns the number of decimal places.
func (a *Asset) Decimals() uint8 {
	return a.decimals
}

// Address returns the token contract address.
func (a *Asset) Address() common.Address {
	return a.id.Address()
}

// String returns a human-readable representation.
func (a *Asset) String() string {
	return a.symbol
}

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id.Equals(other.id)
}
