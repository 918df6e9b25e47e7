package x402

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// DefaultValidityWindow bounds how long a signed authorization stays
// valid. validBefore must still exceed the time the server verifies the
// retried request, so the window is generous relative to one round-trip.
const DefaultValidityWindow = time.Hour

// SchemeExact is the payment scheme implemented by this client.
const SchemeExact = "exact"

// transferWithAuthorizationTypes returns the fixed EIP-712 type schema for
// an EIP-3009 TransferWithAuthorization message.
func transferWithAuthorizationTypes() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"TransferWithAuthorization": {
			{Name: "from", Type: "address"},
			{Name: "to", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "validAfter", Type: "uint256"},
			{Name: "validBefore", Type: "uint256"},
			{Name: "nonce", Type: "bytes32"},
		},
	}
}

// CreateNonce generates a random 32-byte nonce. Every authorization gets a
// fresh one: a reused nonce is either rejected or replayable.
func CreateNonce() (string, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return "0x" + hex.EncodeToString(nonce), nil
}

// BytesToHex converts bytes to a 0x-prefixed hex string
func BytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// HexToBytes converts a hex string to bytes
func HexToBytes(hexStr string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
}

// BuildPaymentPayload turns the chosen payment requirement plus resource
// metadata into a signed payment envelope. Each call is self-contained:
// fresh nonce, fresh validity window, domain derived only from the
// requirement. Signer errors propagate unchanged.
func BuildPaymentPayload(
	ctx context.Context,
	version int,
	requirement PaymentRequirements,
	resource *ResourceInfo,
	signer Signer,
	window time.Duration,
) (PaymentPayload, error) {
	namespace, _, err := requirement.Network.Parse()
	if err != nil || namespace != NamespaceEVM {
		return PaymentPayload{}, NewPaymentError(ErrCodeUnsupportedNetwork,
			fmt.Sprintf("cannot pay on network %q, only %s networks are supported", requirement.Network, NamespaceEVM),
			map[string]interface{}{
				"network": string(requirement.Network),
			})
	}

	chainID, err := requirement.Network.ChainID()
	if err != nil {
		return PaymentPayload{}, NewPaymentError(ErrCodeUnsupportedNetwork,
			err.Error(), map[string]interface{}{
				"network": string(requirement.Network),
			})
	}

	value, ok := new(big.Int).SetString(requirement.Amount, 10)
	if !ok {
		return PaymentPayload{}, fmt.Errorf("invalid amount: %s", requirement.Amount)
	}

	if window <= 0 {
		window = DefaultValidityWindow
	}

	nonce, err := CreateNonce()
	if err != nil {
		return PaymentPayload{}, err
	}

	validAfter := big.NewInt(0)
	validBefore := big.NewInt(time.Now().Unix() + int64(window.Seconds()))

	authorization := ExactAuthorization{
		From:        signer.Address(),
		To:          requirement.PayTo,
		Value:       value.String(),
		ValidAfter:  validAfter.String(),
		ValidBefore: validBefore.String(),
		Nonce:       nonce,
	}

	// The domain comes strictly from the requirement: the asset contract
	// and chain vary per challenge, and a substituted domain yields a
	// signature valid for the wrong contract.
	var name, domainVersion string
	if requirement.Extra != nil {
		name = requirement.Extra.Name
		domainVersion = requirement.Extra.Version
	}
	domain := TypedDataDomain{
		Name:              name,
		Version:           domainVersion,
		ChainID:           chainID,
		VerifyingContract: requirement.Asset,
	}

	nonceBytes, err := HexToBytes(nonce)
	if err != nil {
		return PaymentPayload{}, fmt.Errorf("invalid nonce: %w", err)
	}

	message := map[string]interface{}{
		"from":        authorization.From,
		"to":          authorization.To,
		"value":       value,
		"validAfter":  validAfter,
		"validBefore": validBefore,
		"nonce":       nonceBytes,
	}

	signature, err := signer.SignTypedData(ctx, domain, transferWithAuthorizationTypes(), "TransferWithAuthorization", message)
	if err != nil {
		return PaymentPayload{}, err
	}

	return PaymentPayload{
		X402Version: version,
		Resource:    resource,
		Accepted:    requirement,
		Payload: ExactPayload{
			Signature:     BytesToHex(signature),
			Authorization: authorization,
		},
	}, nil
}

// BuildPaymentHeader builds a signed payment envelope and encodes it as an
// X-PAYMENT header value.
func BuildPaymentHeader(
	ctx context.Context,
	version int,
	requirement PaymentRequirements,
	resource *ResourceInfo,
	signer Signer,
	window time.Duration,
) (string, error) {
	payload, err := BuildPaymentPayload(ctx, version, requirement, resource, signer, window)
	if err != nil {
		return "", err
	}
	return EncodePaymentHeader(payload)
}
