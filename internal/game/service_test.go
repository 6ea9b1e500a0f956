package game

import "testing"

func TestUsernameFromEmail(t *testing.T) {
	cases := []struct {
		email string
		want  string
	}{
		{"joana@example.com", "joana"},
		{"Joana.Silva@example.com", "joana_silva"},
		{"a@example.com", "farmer_a"},
		{"", "farmer"},
		{"@example.com", "farmer"},
	}
	for _, tc := range cases {
		if got := usernameFromEmail(tc.email); got != tc.want {
			t.Fatalf("usernameFromEmail(%q) = %q, want %q", tc.email, got, tc.want)
		}
	}
}

func TestSanitizeUsername(t *testing.T) {
	if got := sanitizeUsername("  Big Farmer!  "); got != "big_farmer" {
		t.Fatalf("sanitize = %q, want big_farmer", got)
	}
	if got := sanitizeUsername(""); got != "farmer" {
		t.Fatalf("sanitize empty = %q, want farmer", got)
	}
	long := sanitizeUsername("abcdefghijklmnopqrstuvwxyz0123456789")
	if len(long) != 24 {
		t.Fatalf("sanitize long = %q (len %d), want 24 chars", long, len(long))
	}
}

func TestValidBucket(t *testing.T) {
	if err := validBucket(BucketSeeds); err != nil {
		t.Fatalf("seeds bucket rejected: %v", err)
	}
	if err := validBucket(BucketProduce); err != nil {
		t.Fatalf("produce bucket rejected: %v", err)
	}
	if err := validBucket("grain"); err == nil {
		t.Fatal("unknown bucket accepted")
	}
}
