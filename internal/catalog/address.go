package catalog

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// AddressKind classifies an asset reference.
type AddressKind int

const (
	KindUnknown AddressKind = iota
	KindEVM                 // 0x-prefixed 20-byte hex address
	KindSolana              // base58 32-byte public key
	KindNative              // chain-native placeholder such as "primary"
	KindSymbol              // short ticker, e.g. "USDC"
)

func (k AddressKind) String() string {
	switch k {
	case KindEVM:
		return "evm"
	case KindSolana:
		return "solana"
	case KindNative:
		return "native"
	case KindSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

var nativeRefs = map[string]struct{}{
	"primary": {},
	"native":  {},
	"":        {},
}

// ClassifyRef reports what kind of reference ref is.
func ClassifyRef(ref string) AddressKind {
	ref = strings.TrimSpace(ref)
	if _, ok := nativeRefs[strings.ToLower(ref)]; ok {
		return KindNative
	}
	if common.IsHexAddress(ref) && strings.HasPrefix(strings.ToLower(ref), "0x") {
		return KindEVM
	}
	if len(ref) >= 32 && len(ref) <= 44 {
		if b, err := base58.Decode(ref); err == nil && len(b) == 32 {
			return KindSolana
		}
	}
	if len(ref) <= 16 && !strings.ContainsAny(ref, " :/") {
		return KindSymbol
	}
	return KindUnknown
}

// NormalizeRef returns the canonical display form of an asset reference:
// EIP-55 checksum for EVM addresses, the input otherwise.
func NormalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ClassifyRef(ref) == KindEVM {
		return common.HexToAddress(ref).Hex()
	}
	return ref
}

// refKey is the case-insensitive index key for a reference.
// Solana keys are case sensitive on chain but never collide case-insensitively in practice.
func refKey(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}
