package token

import (
	"fmt"

	"github.com/google/uuid"
)

// NewSigner builds the signer for alg. HS256 signs with secret; RS256 and ES256 generate a fresh
// key pair whose public half is published through the JWKS endpoint.
func NewSigner(alg, secret string) (Signer, error) {
	switch alg {
	case HS256, "":
		if len(secret) < 32 {
			return nil, fmt.Errorf("HS256 signing secret must be at least 32 characters")
		}
		return NewHMACSigner(secret), nil
	case RS256:
		keyPair, err := GenerateRSAKeyPair(uuid.New().String(), 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RS256 key pair: %w", err)
		}
		return NewKeyPairSigner(keyPair), nil
	case ES256:
		keyPair, err := GenerateECDSAKeyPair(uuid.New().String())
		if err != nil {
			return nil, fmt.Errorf("failed to generate ES256 key pair: %w", err)
		}
		return NewKeyPairSigner(keyPair), nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", alg)
	}
}
