package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/glowdesk/glowdesk/libs/auth"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the raw password")
	}
	if err := verifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("verifyPassword with correct password: %v", err)
	}
	if err := verifyPassword(hash, "wrong"); err == nil {
		t.Fatal("verifyPassword accepted a wrong password")
	}
}

func TestDefaultRole(t *testing.T) {
	if got := defaultRole(0); got != auth.RoleAdmin {
		t.Fatalf("first user role = %q, want admin", got)
	}
	if got := defaultRole(1); got != auth.RoleReceptionist {
		t.Fatalf("second user role = %q, want receptionist", got)
	}
	if got := defaultRole(42); got != auth.RoleReceptionist {
		t.Fatalf("later user role = %q, want receptionist", got)
	}
}

func TestHS256SignerRoundTrip(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	claims := auth.Claims{
		Sub:  "user-1",
		Role: auth.RoleManager,
		Iat:  time.Now().Unix(),
		Exp:  time.Now().Add(time.Hour).Unix(),
	}
	token, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	got, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.Sub != "user-1" || got.Role != auth.RoleManager {
		t.Fatalf("claims round trip = %+v", got)
	}
	if signer.CanRotate() {
		t.Fatal("hs256 signer must not report rotation support")
	}
}

func TestRotatingSignerVerifiesAnyKnownKid(t *testing.T) {
	keyA, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyB, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	kidA := keyID(&keyA.PublicKey)
	kidB := keyID(&keyB.PublicKey)

	signer, err := NewRotatingRS256Signer(map[string]*rsa.PrivateKey{kidA: keyA, kidB: keyB}, kidA)
	if err != nil {
		t.Fatalf("NewRotatingRS256Signer: %v", err)
	}

	claims := auth.Claims{Sub: "user-2", Role: auth.RoleProfessional, Iat: time.Now().Unix(), Exp: time.Now().Add(time.Hour).Unix()}
	tokenA, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("Sign with kid A: %v", err)
	}

	if err := signer.SetActiveKid(kidB); err != nil {
		t.Fatalf("SetActiveKid: %v", err)
	}
	tokenB, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("Sign with kid B: %v", err)
	}

	// Tokens signed before the rotation stay valid.
	for _, token := range []string{tokenA, tokenB} {
		got, err := signer.Verify(token)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if got.Sub != "user-2" {
			t.Fatalf("sub = %q", got.Sub)
		}
	}

	if err := signer.SetActiveKid("missing"); err == nil {
		t.Fatal("SetActiveKid accepted an unknown kid")
	}
	if len(signer.JWKS()) != 2 {
		t.Fatalf("jwks size = %d, want 2", len(signer.JWKS()))
	}
}

func TestParseRS256KeySet(t *testing.T) {
	keyA, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyB, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	blob := string(encodePKCS1(keyA)) + string(encodePKCS1(keyB))

	keys, err := ParseRS256KeySet(blob)
	if err != nil {
		t.Fatalf("ParseRS256KeySet: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("parsed %d keys, want 2", len(keys))
	}

	if _, err := ParseRS256KeySet("not pem at all"); err == nil {
		t.Fatal("ParseRS256KeySet accepted garbage input")
	}
}

func encodePKCS1(key *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
}
