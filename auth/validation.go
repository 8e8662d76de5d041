package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/oauth2"
	"github.com/pkg/errors"
)

// Validator checks request parameters before any business rule runs.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateStruct runs the validate tags of s and reports the failures as one invalid_request
// error.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return oauth2.Errorf(oauth2.ErrorInvalidRequest, err, "malformed request")
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return oauth2.Errorf(oauth2.ErrorInvalidRequest, err, "%s", strings.Join(problems, ", "))
}

// ValidatePKCE validates PKCE (Proof Key for Code Exchange) parameters
func (v *Validator) ValidatePKCE(codeChallenge string, codeChallengeMethod oauth2.CodeMethodType, required bool) error {
	if codeChallenge == "" && codeChallengeMethod == "" {
		if required {
			return oauth2.NewError(oauth2.ErrorInvalidRequest, "PKCE required: code_challenge and code_challenge_method must be provided")
		}
		return nil
	}

	// If one is provided, both must be provided
	if codeChallenge == "" || codeChallengeMethod == "" {
		return oauth2.NewError(oauth2.ErrorInvalidRequest, "both code_challenge and code_challenge_method must be provided together")
	}

	// RFC 7636: base64url, 43 to 128 characters
	if len(codeChallenge) < 43 || len(codeChallenge) > 128 {
		return oauth2.NewError(oauth2.ErrorInvalidRequest, "code_challenge length must be between 43 and 128 characters")
	}

	if codeChallengeMethod != oauth2.CodeMethodTypeS256 && codeChallengeMethod != oauth2.CodeMethodTypeNone {
		return oauth2.NewError(oauth2.ErrorInvalidRequest, "code_challenge_method must be 'S256' or 'plain'")
	}
	return nil
}

// ValidateClientCredentials checks creds against client. The credentials must arrive by the
// client's registered auth method. Clients registered with none must not send a secret, all
// others must send the registered one.
func (v *Validator) ValidateClientCredentials(creds oauth2.ClientCredentials, client *clients.Client) error {
	method := client.TokenEndpointAuthMethod()
	if creds.Method != method {
		return oauth2.Errorf(oauth2.ErrorInvalidClient, nil, "client %s must authenticate with %s, not %s", client.ClientID, method, creds.Method)
	}
	clientSecret := creds.ClientSecret
	if method == clients.AuthMethodNone {
		if clientSecret != "" {
			return oauth2.NewError(oauth2.ErrorInvalidClient, "public clients must not provide client_secret")
		}
		return nil
	}
	if clientSecret == "" {
		return oauth2.NewError(oauth2.ErrorInvalidClient, "client_secret is required for confidential clients")
	}
	if !client.CheckSecret(clientSecret) {
		return oauth2.NewError(oauth2.ErrorInvalidClient, "invalid client secret")
	}
	return nil
}

// checkCodeChallenge verifies a PKCE code_verifier against the stored challenge.
func checkCodeChallenge(storedChallenge, verifier string, method oauth2.CodeMethodType) bool {
	if storedChallenge == "" && verifier == "" { // No PKCE code challenge
		return true
	}
	if storedChallenge == "" || verifier == "" {
		return false
	}
	var computed string
	switch method {
	case oauth2.CodeMethodTypeS256:
		hash := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(hash[:])
	case oauth2.CodeMethodTypeNone:
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedChallenge)) == 1
}
