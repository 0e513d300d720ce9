package token

import (
	"encoding/base64"
	"testing"
)

func TestGenerateOpaque_URLSafe(t *testing.T) {
	tok, err := GenerateOpaque(32)
	if err != nil {
		t.Fatalf("GenerateOpaque err: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("entropy = %d bytes, want 32", len(raw))
	}
}

func TestGenerateOpaque_MinimumEntropy(t *testing.T) {
	// pedir menos de 32 bytes no debilita el token
	tok, err := GenerateOpaque(8)
	if err != nil {
		t.Fatalf("GenerateOpaque err: %v", err)
	}
	raw, _ := base64.RawURLEncoding.DecodeString(tok)
	if len(raw) < 32 {
		t.Fatalf("entropy = %d bytes, want >= 32", len(raw))
	}
}

func TestGenerateOpaque_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := GenerateOpaque(32)
		if err != nil {
			t.Fatalf("GenerateOpaque err: %v", err)
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}
