package telegram

import (
	"net/url"
	"testing"

	"go.uber.org/zap"
)

// --- Test: deep link carries the user identity, query-encoded ---

func TestChatLink(t *testing.T) {
	a := &Adapter{
		config: &Config{WebAppURL: "https://chat.example.com/"},
		logger: zap.NewNop(),
	}

	link, err := a.chatLink(7881985, "Мария")
	if err != nil {
		t.Fatalf("chatLink failed: %v", err)
	}

	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("tg_user_id") != "7881985" {
		t.Fatalf("expected tg_user_id=7881985, got %q", q.Get("tg_user_id"))
	}
	if q.Get("first_name") != "Мария" {
		t.Fatalf("expected the first name to survive encoding, got %q", q.Get("first_name"))
	}

	if _, err := a.chatLink(1, "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Test: an unparsable base URL is reported, not sent ---

func TestChatLink_InvalidBase(t *testing.T) {
	a := &Adapter{
		config: &Config{WebAppURL: "://not-a-url"},
		logger: zap.NewNop(),
	}

	if _, err := a.chatLink(1, "x"); err == nil {
		t.Fatalf("expected an error for an invalid webapp_url")
	}
}
