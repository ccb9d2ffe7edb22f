package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("decrypted key = %s, want %s", got, testKeyHex)
	}
}

func TestDecryptKey_WrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Error("DecryptKey succeeded with the wrong password")
	}
}

func TestEncryptKey_Validation(t *testing.T) {
	if _, err := EncryptKey(testKeyHex, ""); err == nil {
		t.Error("EncryptKey accepted an empty password")
	}
	if _, err := EncryptKey("zz", "pw"); err == nil {
		t.Error("EncryptKey accepted invalid hex")
	}
	if _, err := EncryptKey("abcd", "pw"); err == nil {
		t.Error("EncryptKey accepted a short key")
	}
}

func TestLoadKey_RawTakesPrecedence(t *testing.T) {
	key, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex, EncryptedKeyPath: "/does/not/exist"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if key != testKeyHex {
		t.Errorf("key = %s, want %s", key, testKeyHex)
	}
}

func TestLoadKey_FromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	key, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if key != testKeyHex {
		t.Errorf("key = %s, want %s", key, testKeyHex)
	}
}

func TestLoadKey_NoSource(t *testing.T) {
	if _, err := LoadKey(KeyConfig{}); err == nil {
		t.Error("LoadKey succeeded with no key source")
	} else if !strings.Contains(err.Error(), "no private key source") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadECDSAKey(t *testing.T) {
	key, err := LoadECDSAKey(KeyConfig{RawPrivateKey: testKeyHex})
	if err != nil {
		t.Fatalf("LoadECDSAKey: %v", err)
	}
	if key == nil || key.D.Sign() == 0 {
		t.Error("LoadECDSAKey returned an empty key")
	}
}
