package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/rs/zerolog"
)

func TestValidSignature(t *testing.T) {
	s := &BillingService{keySecret: "test_secret", log: zerolog.Nop()}

	mac := hmac.New(sha256.New, []byte("test_secret"))
	mac.Write([]byte("order_abc|pay_xyz"))
	good := hex.EncodeToString(mac.Sum(nil))

	if !s.validSignature("order_abc", "pay_xyz", good) {
		t.Fatal("valid signature rejected")
	}
	if s.validSignature("order_abc", "pay_xyz", "deadbeef") {
		t.Fatal("forged signature accepted")
	}
	if s.validSignature("order_other", "pay_xyz", good) {
		t.Fatal("signature accepted for wrong order")
	}
	if s.validSignature("order_abc", "pay_xyz", "") {
		t.Fatal("empty signature accepted")
	}
}
