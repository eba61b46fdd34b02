package handlers

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"math/big"

	"github.com/glowdesk/glowdesk/libs/auth"
)

// TokenSigner issues and verifies the access tokens clinic staff log in
// with. JWKS exposes public keys so the gateway can verify on its own;
// it is empty for the shared-secret signer.
type TokenSigner interface {
	Sign(claims auth.Claims) (string, error)
	Verify(token string) (*auth.Claims, error)
	JWKS() []map[string]any
	CanRotate() bool
	SetActiveKid(kid string) error
	RotateKey() string
}

type hs256Signer struct {
	secret string
}

func NewHS256Signer(secret string) TokenSigner {
	return &hs256Signer{secret: secret}
}

func (s *hs256Signer) Sign(claims auth.Claims) (string, error) {
	return auth.SignHS256(claims, s.secret)
}

func (s *hs256Signer) Verify(token string) (*auth.Claims, error) {
	return auth.ParseAndVerifyHS256(token, s.secret)
}

func (s *hs256Signer) JWKS() []map[string]any { return nil }
func (s *hs256Signer) CanRotate() bool        { return false }
func (s *hs256Signer) RotateKey() string      { return "" }

func (s *hs256Signer) SetActiveKid(_ string) error {
	return errors.New("rotation not supported")
}

// signingKey pairs an RSA key with its derived kid and public JWK.
type signingKey struct {
	key *rsa.PrivateKey
	kid string
	jwk map[string]any
}

func newSigningKey(key *rsa.PrivateKey, kid string) signingKey {
	if kid == "" {
		kid = keyID(&key.PublicKey)
	}
	return signingKey{key: key, kid: kid, jwk: publicJWK(&key.PublicKey, kid)}
}

func (k signingKey) sign(claims auth.Claims) (string, error) {
	return auth.SignRS256(claims, k.key, k.kid)
}

func (k signingKey) verify(token string) (*auth.Claims, error) {
	return auth.VerifyRS256(token, &k.key.PublicKey)
}

type rs256Signer struct {
	key signingKey
}

func NewRS256Signer(pemBytes []byte, kid string) (TokenSigner, error) {
	key, err := parseRSAPrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}
	return &rs256Signer{key: newSigningKey(key, kid)}, nil
}

func (s *rs256Signer) Sign(claims auth.Claims) (string, error) {
	return s.key.sign(claims)
}

func (s *rs256Signer) Verify(token string) (*auth.Claims, error) {
	return s.key.verify(token)
}

func (s *rs256Signer) JWKS() []map[string]any {
	return []map[string]any{s.key.jwk}
}

func (s *rs256Signer) CanRotate() bool   { return false }
func (s *rs256Signer) RotateKey() string { return "" }

func (s *rs256Signer) SetActiveKid(_ string) error {
	return errors.New("rotation not supported")
}

// ParseRS256KeySet loads every RSA private key from a concatenated PEM
// blob, keyed by derived kid.
func ParseRS256KeySet(pemBlobs string) (map[string]*rsa.PrivateKey, error) {
	keys := map[string]*rsa.PrivateKey{}
	for _, block := range splitPEMBlocks(pemBlobs) {
		key, err := parseRSAPrivateKey(block)
		if err != nil {
			return nil, err
		}
		keys[keyID(&key.PublicKey)] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("no valid rsa keys found")
	}
	return keys, nil
}

// RotatingSigner signs with one active key while verifying against every
// known key, so tokens issued before a rotation stay valid until expiry.
type RotatingSigner struct {
	activeKid string
	keys      map[string]signingKey
	rotateKey string
}

func NewRotatingRS256Signer(keys map[string]*rsa.PrivateKey, activeKid string) (TokenSigner, error) {
	if len(keys) == 0 {
		return nil, errors.New("no keys provided")
	}
	s := &RotatingSigner{
		activeKid: activeKid,
		keys:      map[string]signingKey{},
	}
	for kid, key := range keys {
		if kid == "" || key == nil {
			continue
		}
		s.keys[kid] = newSigningKey(key, kid)
	}
	if s.activeKid == "" {
		for kid := range s.keys {
			s.activeKid = kid
			break
		}
	}
	if _, ok := s.keys[s.activeKid]; !ok {
		return nil, errors.New("active kid not found")
	}
	return s, nil
}

func (s *RotatingSigner) Sign(claims auth.Claims) (string, error) {
	return s.keys[s.activeKid].sign(claims)
}

func (s *RotatingSigner) Verify(token string) (*auth.Claims, error) {
	header, err := auth.ParseHeader(token)
	if err != nil {
		return nil, err
	}
	key, ok := s.keys[header.Kid]
	if header.Kid == "" || !ok {
		return nil, auth.ErrInvalidToken
	}
	return key.verify(token)
}

func (s *RotatingSigner) JWKS() []map[string]any {
	out := make([]map[string]any, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key.jwk)
	}
	return out
}

func (s *RotatingSigner) CanRotate() bool { return true }

func (s *RotatingSigner) SetActiveKid(kid string) error {
	if _, ok := s.keys[kid]; !ok {
		return errors.New("unknown kid")
	}
	s.activeKid = kid
	return nil
}

// RotateKey is the shared secret the rotate endpoint requires in
// X-Rotate-Key before switching the active kid.
func (s *RotatingSigner) RotateKey() string { return s.rotateKey }

func (s *RotatingSigner) SetRotateKey(key string) { s.rotateKey = key }

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("invalid pem")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
	}
	return nil, errors.New("unsupported private key")
}

func publicJWK(pub *rsa.PublicKey, kid string) map[string]any {
	return map[string]any{
		"kty": "RSA",
		"kid": kid,
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// keyID derives a stable kid from the public modulus.
func keyID(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}

func splitPEMBlocks(raw string) [][]byte {
	var blocks [][]byte
	rest := []byte(raw)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return blocks
		}
		blocks = append(blocks, pem.EncodeToMemory(block))
	}
}
