package article

import (
	"strings"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("Opinion: On Tariffs", "The argument goes as follows.")
	b := Fingerprint("Opinion: On Tariffs", "The argument goes as follows.")
	if a != b {
		t.Fatalf("same inputs produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(a))
	}
}

func TestFingerprintSensitiveWithinPrefix(t *testing.T) {
	body := strings.Repeat("a", 600)
	changed := "b" + body[1:]

	if Fingerprint("t", body) == Fingerprint("t", changed) {
		t.Error("change within first 500 runes did not change digest")
	}
	if Fingerprint("t", body) == Fingerprint("u", body) {
		t.Error("title change did not change digest")
	}
}

func TestFingerprintIgnoresBodyTail(t *testing.T) {
	base := strings.Repeat("x", 500)
	if Fingerprint("t", base+"one ending") != Fingerprint("t", base+"another ending") {
		t.Error("digest depends on body content past the 500-rune prefix")
	}
}

func TestFingerprintShortBody(t *testing.T) {
	if Fingerprint("t", "short") != Fingerprint("t", "short") {
		t.Error("short bodies must fingerprint deterministically")
	}
	if Fingerprint("t", "") == Fingerprint("t", "x") {
		t.Error("empty and non-empty bodies collided")
	}
}
