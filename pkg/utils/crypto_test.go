package utils

import "testing"

var cryptoKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := Encrypt([]byte("the-access-token"), cryptoKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted == "the-access-token" {
		t.Fatal("token stored in the clear")
	}

	plain, err := Decrypt(encrypted, cryptoKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "the-access-token" {
		t.Errorf("round trip = %q", plain)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("the-access-token"), cryptoKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	other := []byte("ffffffffffffffffffffffffffffffff")
	if _, err := Decrypt(encrypted, other); err == nil {
		t.Error("expected error for wrong key")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not base64 !!!", "aGVsbG8="} {
		if _, err := Decrypt(in, cryptoKey); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
