package auth

import "testing"

func TestPasswordRoundTrip(t *testing.T) {
	ph, err := HashPassword("correct horse", "pepper")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	parsed, err := ParsePasswordHash(ph.Hash, ph.Salt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ok, err := VerifyPassword("correct horse", "pepper", parsed)
	if err != nil || !ok {
		t.Fatalf("verify failed: ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsWrongPasswordAndPepper(t *testing.T) {
	ph := MustHashPassword("correct horse", "pepper")

	ok, err := VerifyPassword("wrong horse", "pepper", ph)
	if err != nil {
		t.Fatalf("verify wrong password: %v", err)
	}
	if ok {
		t.Fatalf("wrong password accepted")
	}

	ok, err = VerifyPassword("correct horse", "other-pepper", ph)
	if err != nil {
		t.Fatalf("verify wrong pepper: %v", err)
	}
	if ok {
		t.Fatalf("wrong pepper accepted")
	}
}

func TestHashingIsSalted(t *testing.T) {
	a := MustHashPassword("same password", "pepper")
	b := MustHashPassword("same password", "pepper")
	if a.Hash == b.Hash || a.Salt == b.Salt {
		t.Fatalf("two hashes of the same password share salt or hash")
	}
}

func TestGenerateCSRFIsDeterministicPerSession(t *testing.T) {
	a := GenerateCSRF("key", "sess-1")
	b := GenerateCSRF("key", "sess-1")
	c := GenerateCSRF("key", "sess-2")
	if a != b {
		t.Fatalf("same session produced different tokens")
	}
	if a == c {
		t.Fatalf("different sessions produced the same token")
	}
}
