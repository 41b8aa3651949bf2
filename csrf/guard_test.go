package csrf

import (
	"net/http"
	"testing"
	"time"
)

func TestIssueProducesUniqueTokens(t *testing.T) {
	guard := NewGuard(Config{})

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		token, err := guard.Issue()
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if token == "" {
			t.Fatal("empty token")
		}
		if seen[token] {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = true
	}
}

func TestVerifyTable(t *testing.T) {
	guard := NewGuard(Config{})

	token, err := guard.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other, err := guard.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name   string
		header string
		cookie string
		want   bool
	}{
		{"both present and equal", token, token, true},
		{"missing header", "", token, false},
		{"missing cookie", token, "", false},
		{"both missing", "", "", false},
		{"mismatch", token, other, false},
		{"undecodable header", "%%%", token, false},
		{"undecodable cookie", token, "%%%", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := guard.Verify(tc.header, tc.cookie); got != tc.want {
				t.Fatalf("Verify(%q, %q) = %v, want %v", tc.header, tc.cookie, got, tc.want)
			}
		})
	}
}

func TestCookieAttributes(t *testing.T) {
	guard := NewGuard(Config{CookieName: "csrf_token", TTL: time.Hour, Secure: true})

	cookie := guard.Cookie("tok")

	if cookie.Name != "csrf_token" || cookie.Value != "tok" {
		t.Fatalf("unexpected cookie identity: %+v", cookie)
	}
	if cookie.HttpOnly {
		t.Fatal("CSRF cookie must be readable by the client")
	}
	if !cookie.Secure {
		t.Fatal("expected Secure cookie")
	}
	if cookie.SameSite != http.SameSiteStrictMode {
		t.Fatal("expected SameSite=Strict")
	}
	if cookie.MaxAge != 3600 {
		t.Fatalf("expected bounded lifetime, got MaxAge=%d", cookie.MaxAge)
	}
}
