package x402

import (
	"context"
	"math/big"
)

// TypedDataDomain is the EIP-712 domain separator. For x402 payments every
// field is derived from the server's payment requirement, never from local
// configuration: a domain built from anything else produces a signature
// that is either rejected or valid against the wrong contract or chain.
type TypedDataDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract string
}

// TypedDataField describes one field of an EIP-712 struct type.
type TypedDataField struct {
	Name string
	Type string
}

// Signer is the signing capability injected by the caller. The builder
// never signs anything itself; it hands the fully-typed authorization to
// this interface. SignTypedData may block on an external device or remote
// service; implementations should honor ctx cancellation.
type Signer interface {
	// Address returns the payer address whose key backs this signer.
	Address() string

	// SignTypedData signs EIP-712 typed data and returns the raw
	// signature bytes (65 bytes for ECDSA: r, s, v).
	SignTypedData(
		ctx context.Context,
		domain TypedDataDomain,
		types map[string][]TypedDataField,
		primaryType string,
		message map[string]interface{},
	) ([]byte, error)
}
