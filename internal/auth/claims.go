package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tonimelisma/spe-client/internal/session"
)

// idTokenClaims are the id_token claims used to describe the account.
type idTokenClaims struct {
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	jwt.RegisteredClaims
}

// accountFromIDToken reads the account out of an id_token. The signature is
// not checked; the claims only label the account.
func accountFromIDToken(raw string) (session.Account, error) {
	if raw == "" {
		return session.Account{Username: "unknown"}, errors.New("no id_token in token response")
	}

	claims := &idTokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return session.Account{Username: "unknown"}, fmt.Errorf("parsing id_token: %w", err)
	}

	acct := session.Account{
		Username: claims.PreferredUsername,
		Name:     claims.Name,
		TenantID: claims.TenantID,
	}
	if acct.Username == "" {
		acct.Username = claims.Subject
	}
	if claims.ObjectID != "" {
		acct.HomeAccountID = claims.ObjectID + "." + claims.TenantID
	}
	return acct, nil
}
