package ledger

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer produces a compact signature over the immutable fields of a
// transaction so tampering with stored amounts is detectable offline.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

type txClaims struct {
	Amount     int64  `json:"amount"`
	AdminEmail string `json:"admin"`
	jwt.RegisteredClaims
}

// Sign returns an HS256 JWS covering the transaction identity, recipient,
// amount, and issuing admin.
func (s *Signer) Sign(tx Transaction) (string, error) {
	claims := txClaims{
		Amount:     tx.Amount,
		AdminEmail: tx.AdminEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       tx.ID,
			Subject:  tx.RecipientUserID,
			IssuedAt: jwt.NewNumericDate(tx.CreatedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// Verify checks tx.Signature against the transaction fields.
func (s *Signer) Verify(tx Transaction) error {
	var claims txClaims
	token, err := jwt.ParseWithClaims(tx.Signature, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if claims.ID != tx.ID || claims.Subject != tx.RecipientUserID ||
		claims.Amount != tx.Amount || claims.AdminEmail != tx.AdminEmail {
		return fmt.Errorf("%w: claims do not match transaction", ErrInvalidSignature)
	}
	return nil
}
