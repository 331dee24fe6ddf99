package email

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (r *recordingSender) Send(to, subject, html, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to+"|"+subject+"|"+text)
	return r.err
}

func TestWelcomeSendsInBackground(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier(s, "Acme")
	n.Welcome(context.Background(), "a@x.com", "Ann", "apple")
	n.Wait()

	if len(s.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(s.sent))
	}
	if !strings.Contains(s.sent[0], "a@x.com|Welcome to Acme|Hi Ann,") || !strings.Contains(s.sent[0], "signed up with apple") {
		t.Fatalf("unexpected mail: %q", s.sent[0])
	}
}

func TestWelcomeSkipsWithoutAddressOrSender(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier(s, "Acme")
	n.Welcome(context.Background(), "", "Ann", "")
	n.Wait()
	if len(s.sent) != 0 {
		t.Fatalf("sent = %d, want 0", len(s.sent))
	}

	var disabled *Notifier
	disabled.Welcome(context.Background(), "a@x.com", "", "")
	NewNotifier(nil, "").Welcome(context.Background(), "a@x.com", "", "")
}

func TestWelcomeFailureIsSwallowed(t *testing.T) {
	s := &recordingSender{err: errors.New("smtp down")}
	n := NewNotifier(s, "")
	n.Welcome(context.Background(), "a@x.com", "", "")
	n.Wait()
	if len(s.sent) != 1 {
		t.Fatalf("attempts = %d, want 1", len(s.sent))
	}
}

func TestSMTPConfigEnabled(t *testing.T) {
	if (SMTPConfig{}).Enabled() {
		t.Fatal("empty config enabled")
	}
	if !(SMTPConfig{Host: "smtp.x", From: "no-reply@x"}).Enabled() {
		t.Fatal("configured sender disabled")
	}
}
