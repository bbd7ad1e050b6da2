// Package push delivers reminders as Web Push notifications to every
// registered browser subscription.
package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/clientbook/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrExpired is returned when a push subscription is no longer valid (410 Gone).
var ErrExpired = errors.New("push subscription expired")

// ErrNoSubscribers is returned by Broadcast when no subscription received the
// payload, either because none are registered or because all had expired.
var ErrNoSubscribers = errors.New("no push subscribers")

// Payload is the JSON sent to the push service.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Subscriptions is the slice of the push store the service needs.
type Subscriptions interface {
	List() ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

type sendFunc func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// Service handles sending web push notifications.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	subs       Subscriptions
	logger     *slog.Logger
	send       sendFunc
}

// NewService creates a new push service with VAPID keys. subscriber is the
// contact URI (mailto: or https:) sent to push services.
func NewService(publicKey, privateKey, subscriber string, subs Subscriptions, logger *slog.Logger) *Service {
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		subs:       subs,
		logger:     logger,
		send:       webpush.SendNotification,
	}
}

// VAPIDPublicKey returns the VAPID public key for client-side subscription.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Configured reports whether VAPID keys are present.
func (s *Service) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// Send sends a push notification to a subscription.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := s.send(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      &http.Client{Transport: ctxTransport{ctx: ctx}},
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// Broadcast sends payload to every subscription and prunes expired ones. It
// succeeds when at least one subscription accepted the payload.
func (s *Service) Broadcast(ctx context.Context, payload Payload) error {
	if !s.Configured() {
		return errors.New("push not configured")
	}
	subs, err := s.subs.List()
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return ErrNoSubscribers
	}

	var delivered int
	var lastErr error
	for i := range subs {
		sub := &subs[i]
		err := s.Send(ctx, sub, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			s.logger.Info("removing expired subscription", "id", sub.ID)
			if err := s.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				s.logger.Warn("delete expired subscription", "error", err)
			}
		default:
			lastErr = err
			s.logger.Warn("push delivery failed", "error", err, "id", sub.ID)
		}
	}
	if delivered == 0 {
		if lastErr != nil {
			return lastErr
		}
		return ErrNoSubscribers
	}
	return nil
}

// ctxTransport ties outgoing push requests to ctx.
type ctxTransport struct {
	ctx context.Context
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return http.DefaultTransport.RoundTrip(req.WithContext(t.ctx))
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())

	return publicKey, privateKey, nil
}
