// Package x402 implements the client side of the x402 micropayment
// protocol: decoding the payment challenge a server attaches to a 402
// response and producing the signed X-PAYMENT header for the retried
// request. Signing itself is delegated to a caller-supplied Signer.
package x402

import (
	"fmt"
	"math/big"
	"strings"
)

// NamespaceEVM is the only CAIP-2 namespace this client can pay on.
const NamespaceEVM = "eip155"

// Network represents a blockchain network identifier in CAIP-2 format
// Format: namespace:reference (e.g., "eip155:8453" for Base mainnet)
type Network string

// Parse splits the network into namespace and reference components
func (n Network) Parse() (namespace, reference string, err error) {
	parts := strings.Split(string(n), ":")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid network format: %s", n)
	}
	return parts[0], parts[1], nil
}

// ChainID returns the numeric chain id for an eip155 network.
func (n Network) ChainID() (*big.Int, error) {
	namespace, reference, err := n.Parse()
	if err != nil {
		return nil, err
	}
	if namespace != NamespaceEVM {
		return nil, fmt.Errorf("not an %s network: %s", NamespaceEVM, n)
	}
	chainID, ok := new(big.Int).SetString(reference, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chain id in network: %s", n)
	}
	return chainID, nil
}

// RequirementExtra carries the EIP-712 signing-domain parameters for the
// asset contract. Name and Version come from the token contract itself
// (e.g., "USD Coin" / "2") and vary per challenge.
type RequirementExtra struct {
	AssetTransferMethod string `json:"assetTransferMethod,omitempty"`
	Name                string `json:"name"`
	Version             string `json:"version"`
}

// PaymentRequirements defines one payment option offered by the server.
type PaymentRequirements struct {
	Scheme            string            `json:"scheme"`
	Network           Network           `json:"network"`
	Asset             string            `json:"asset"`
	Amount            string            `json:"amount"` // smallest unit, decimal string
	PayTo             string            `json:"payTo"`
	MaxTimeoutSeconds int               `json:"maxTimeoutSeconds"`
	Extra             *RequirementExtra `json:"extra,omitempty"`
}

// ResourceInfo describes the resource being paid for. It is copied
// verbatim from the challenge into the signed payment header.
type ResourceInfo struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// PaymentRequired is the decoded payment challenge from a 402 response.
type PaymentRequired struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error,omitempty"`
	Resource    *ResourceInfo         `json:"resource,omitempty"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// ExactAuthorization is the wire form of an EIP-3009
// TransferWithAuthorization message. Value, ValidAfter and ValidBefore are
// decimal strings: uint256 values do not survive JSON numbers intact.
type ExactAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"` // 32-byte nonce as 0x-prefixed hex
}

// ExactPayload pairs the authorization with its EIP-712 signature.
type ExactPayload struct {
	Signature     string             `json:"signature"`
	Authorization ExactAuthorization `json:"authorization"`
}

// PaymentPayload is the envelope serialized into the X-PAYMENT header.
// Accepted is the chosen requirement echoed back verbatim; servers use it
// to revalidate the payment against what they offered.
type PaymentPayload struct {
	X402Version int                 `json:"x402Version"`
	Resource    *ResourceInfo       `json:"resource,omitempty"`
	Accepted    PaymentRequirements `json:"accepted"`
	Payload     ExactPayload        `json:"payload"`
}
