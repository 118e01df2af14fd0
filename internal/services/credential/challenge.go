package credential

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// challengePrefix is the fixed template wallets are asked to sign. Changing it
// invalidates every signature produced by existing clients.
const challengePrefix = "Log into the Sporeverse: "

// ChallengeMessage builds the login challenge for a nonce
func ChallengeMessage(nonce string) string {
	return challengePrefix + nonce
}

// RecoverSigner recovers the wallet address that produced an EIP-191
// personal_sign signature over message. The signature is 65 hex-encoded bytes
// with either a 0/1 or legacy 27/28 recovery id, with or without a 0x prefix.
func RecoverSigner(message, signature string) (common.Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(raw))
	}

	sig := make([]byte, crypto.SignatureLength)
	copy(sig, raw)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
