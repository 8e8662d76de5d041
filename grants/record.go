package grants

import (
	"time"

	"github.com/pkg/errors"
)

// Record is the flat, storage-ready projection of a Grant. Attribute and metadata maps are
// encoded blobs and scope lists are comma delimited.
type Record struct {
	ID               string
	ClientID         string
	PrincipalName    string
	GrantType        string
	Attributes       string
	AuthorizedScopes string
	State            string

	AuthorizationCodeValue     string
	AuthorizationCodeIssuedAt  time.Time
	AuthorizationCodeExpiresAt time.Time
	AuthorizationCodeMetadata  string

	AccessTokenValue     string
	AccessTokenIssuedAt  time.Time
	AccessTokenExpiresAt time.Time
	AccessTokenType      string
	AccessTokenScopes    string
	AccessTokenMetadata  string
}

// Record field names as stored in the backend.
const (
	fieldID                         = "id"
	fieldClientID                   = "clientId"
	fieldPrincipalName              = "principalName"
	fieldGrantType                  = "grantType"
	fieldAttributes                 = "attributes"
	fieldAuthorizedScopes           = "authorizedScopes"
	fieldState                      = "state"
	fieldAuthorizationCodeValue     = "authorizationCodeValue"
	fieldAuthorizationCodeIssuedAt  = "authorizationCodeIssuedAt"
	fieldAuthorizationCodeExpiresAt = "authorizationCodeExpiresAt"
	fieldAuthorizationCodeMetadata  = "authorizationCodeMetadata"
	fieldAccessTokenValue           = "accessTokenValue"
	fieldAccessTokenIssuedAt        = "accessTokenIssuedAt"
	fieldAccessTokenExpiresAt       = "accessTokenExpiresAt"
	fieldAccessTokenType            = "accessTokenType"
	fieldAccessTokenScopes          = "accessTokenScopes"
	fieldAccessTokenMetadata        = "accessTokenMetadata"
)

// Fields returns the record as scalar string fields. Zero timestamps are stored as "".
func (r *Record) Fields() map[string]string {
	return map[string]string{
		fieldID:                         r.ID,
		fieldClientID:                   r.ClientID,
		fieldPrincipalName:              r.PrincipalName,
		fieldGrantType:                  r.GrantType,
		fieldAttributes:                 r.Attributes,
		fieldAuthorizedScopes:           r.AuthorizedScopes,
		fieldState:                      r.State,
		fieldAuthorizationCodeValue:     r.AuthorizationCodeValue,
		fieldAuthorizationCodeIssuedAt:  formatTime(r.AuthorizationCodeIssuedAt),
		fieldAuthorizationCodeExpiresAt: formatTime(r.AuthorizationCodeExpiresAt),
		fieldAuthorizationCodeMetadata:  r.AuthorizationCodeMetadata,
		fieldAccessTokenValue:           r.AccessTokenValue,
		fieldAccessTokenIssuedAt:        formatTime(r.AccessTokenIssuedAt),
		fieldAccessTokenExpiresAt:       formatTime(r.AccessTokenExpiresAt),
		fieldAccessTokenType:            r.AccessTokenType,
		fieldAccessTokenScopes:          r.AccessTokenScopes,
		fieldAccessTokenMetadata:        r.AccessTokenMetadata,
	}
}

// RecordFromFields is the inverse of Record.Fields. Missing fields are left empty.
func RecordFromFields(fields map[string]string) (*Record, error) {
	r := &Record{
		ID:                        fields[fieldID],
		ClientID:                  fields[fieldClientID],
		PrincipalName:             fields[fieldPrincipalName],
		GrantType:                 fields[fieldGrantType],
		Attributes:                fields[fieldAttributes],
		AuthorizedScopes:          fields[fieldAuthorizedScopes],
		State:                     fields[fieldState],
		AuthorizationCodeValue:    fields[fieldAuthorizationCodeValue],
		AuthorizationCodeMetadata: fields[fieldAuthorizationCodeMetadata],
		AccessTokenValue:          fields[fieldAccessTokenValue],
		AccessTokenType:           fields[fieldAccessTokenType],
		AccessTokenScopes:         fields[fieldAccessTokenScopes],
		AccessTokenMetadata:       fields[fieldAccessTokenMetadata],
	}

	timestamps := []struct {
		field string
		dst   *time.Time
	}{
		{fieldAuthorizationCodeIssuedAt, &r.AuthorizationCodeIssuedAt},
		{fieldAuthorizationCodeExpiresAt, &r.AuthorizationCodeExpiresAt},
		{fieldAccessTokenIssuedAt, &r.AccessTokenIssuedAt},
		{fieldAccessTokenExpiresAt, &r.AccessTokenExpiresAt},
	}
	for _, ts := range timestamps {
		t, err := parseTime(fields[ts.field])
		if err != nil {
			return nil, serializationError("decode "+ts.field, errors.WithStack(err))
		}
		*ts.dst = t
	}
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
