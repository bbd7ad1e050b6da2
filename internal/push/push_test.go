package push

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/dukerupert/clientbook/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) > 32 || len(privBytes) == 0 {
		t.Errorf("private key length = %d, want at most 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

type fakeSubs struct {
	subs    []model.PushSubscription
	deleted []string
}

func (f *fakeSubs) List() ([]model.PushSubscription, error) { return f.subs, nil }

func (f *fakeSubs) DeleteByEndpoint(endpoint string) error {
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func respond(code int) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}
}

func newTestService(subs Subscriptions, send sendFunc) *Service {
	s := NewService("pub", "priv", "mailto:test@example.com", subs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.send = send
	return s
}

func TestBroadcastPrunesExpired(t *testing.T) {
	subs := &fakeSubs{subs: []model.PushSubscription{
		{ID: 1, Endpoint: "https://push.example/live"},
		{ID: 2, Endpoint: "https://push.example/gone"},
	}}

	var payloads []Payload
	svc := newTestService(subs, func(msg []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
		var p Payload
		if err := json.Unmarshal(msg, &p); err != nil {
			t.Errorf("payload: %v", err)
		}
		payloads = append(payloads, p)
		if opts.Subscriber != "mailto:test@example.com" {
			t.Errorf("subscriber = %q", opts.Subscriber)
		}
		if strings.HasSuffix(sub.Endpoint, "/gone") {
			return respond(http.StatusGone), nil
		}
		return respond(http.StatusCreated), nil
	})

	err := svc.Broadcast(context.Background(), Payload{Title: "Confirm appointment", Tag: "confirm"})
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(payloads) != 2 || payloads[0].Title != "Confirm appointment" {
		t.Errorf("payloads = %+v", payloads)
	}
	if len(subs.deleted) != 1 || subs.deleted[0] != "https://push.example/gone" {
		t.Errorf("deleted = %v", subs.deleted)
	}
}

func TestBroadcastAllFailed(t *testing.T) {
	subs := &fakeSubs{subs: []model.PushSubscription{{ID: 1, Endpoint: "https://push.example/a"}}}
	svc := newTestService(subs, func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
		return respond(http.StatusInternalServerError), nil
	})
	if err := svc.Broadcast(context.Background(), Payload{Title: "x"}); err == nil {
		t.Error("expected error when every delivery fails")
	}
}

func TestBroadcastNotConfigured(t *testing.T) {
	svc := NewService("", "", "", &fakeSubs{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if svc.Configured() {
		t.Error("service without keys reports configured")
	}
	if err := svc.Broadcast(context.Background(), Payload{}); err == nil {
		t.Error("expected error without keys")
	}
}

func TestBroadcastNobodyReached(t *testing.T) {
	tests := []struct {
		name string
		subs []model.PushSubscription
	}{
		{"no subscriptions", nil},
		{"all expired", []model.PushSubscription{
			{ID: 1, Endpoint: "https://push.example/a"},
			{ID: 2, Endpoint: "https://push.example/b"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &fakeSubs{subs: tt.subs}
			svc := newTestService(subs, func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
				return respond(http.StatusGone), nil
			})
			err := svc.Broadcast(context.Background(), Payload{Title: "x"})
			if !errors.Is(err, ErrNoSubscribers) {
				t.Errorf("err = %v, want ErrNoSubscribers", err)
			}
			if len(subs.deleted) != len(tt.subs) {
				t.Errorf("deleted = %v, want %d", subs.deleted, len(tt.subs))
			}
		})
	}
}
