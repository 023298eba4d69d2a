package token

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const minRSABits = 2048

// AccessSigner signs access tokens with HS256. Only the issuer reads them back.
type AccessSigner struct {
	secret []byte
}

func NewAccessSigner(secret string) (*AccessSigner, error) {
	if secret == "" {
		return nil, errors.New("[token.NewAccessSigner] secret is required")
	}
	return &AccessSigner{secret: []byte(secret)}, nil
}

func (s *AccessSigner) Sign(claims jwt.MapClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "AccessSigner.Sign")
	}
	return signed, nil
}

// Parse verifies raw and fills claims. Only HS256 is accepted.
func (s *AccessSigner) Parse(raw string, claims jwt.MapClaims, options ...jwt.ParserOption) (*jwt.Token, error) {
	options = append(options, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, options...)
}

// IDSigner signs OpenID Connect ID tokens with RS256. Clients verify them
// against the key published by JWKS.
type IDSigner struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewIDSigner generates a fresh RSA key; bits below 2048 are raised to 2048.
func NewIDSigner(keyID string, bits int) (*IDSigner, error) {
	if keyID == "" {
		return nil, errors.New("[token.NewIDSigner] key ID is required")
	}
	key, err := rsa.GenerateKey(rand.Reader, max(bits, minRSABits))
	if err != nil {
		return nil, errors.Wrap(err, "[token.NewIDSigner] generating RSA key")
	}
	return &IDSigner{keyID: keyID, key: key}, nil
}

func (s *IDSigner) KeyID() string {
	return s.keyID
}

func (s *IDSigner) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

func (s *IDSigner) Sign(claims jwt.MapClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.keyID
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(err, "IDSigner.Sign")
	}
	return signed, nil
}

// JWKS is a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is the public half of an RSA signing key.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (s *IDSigner) JWK() JWK {
	pub := s.PublicKey()
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: s.keyID,
		Alg: jwt.SigningMethodRS256.Alg(),
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}
