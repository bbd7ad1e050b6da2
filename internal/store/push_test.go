package store

import (
	"testing"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
)

func TestCreateSubscription(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	sub, err := ps.CreateSubscription("https://push.example.com/sub1", "p256dh_key1", "auth_key1", "Phone")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.Endpoint != "https://push.example.com/sub1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
	if sub.DeviceName != "Phone" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Phone")
	}
}

func TestCreateSubscriptionUpsert(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	sub1, _ := ps.CreateSubscription("https://push.example.com/sub1", "key1", "auth1", "Device A")
	sub2, err := ps.CreateSubscription("https://push.example.com/sub1", "key2", "auth2", "Device B")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if sub2.ID != sub1.ID {
		t.Errorf("expected same ID on upsert, got %d != %d", sub2.ID, sub1.ID)
	}
	if sub2.P256dhKey != "key2" {
		t.Errorf("p256dh = %q, want %q", sub2.P256dhKey, "key2")
	}

	subs, _ := ps.List()
	if len(subs) != 1 {
		t.Errorf("len = %d, want 1", len(subs))
	}
}

func TestDeleteSubscription(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	a, _ := ps.CreateSubscription("https://push.example.com/a", "k", "a", "A")
	ps.CreateSubscription("https://push.example.com/b", "k", "a", "B")

	if err := ps.DeleteSubscription(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ps.DeleteByEndpoint("https://push.example.com/b"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, _ := ps.List()
	if len(subs) != 0 {
		t.Errorf("len = %d, want 0", len(subs))
	}
	if got, _ := ps.GetByID(a.ID); got != nil {
		t.Errorf("GetByID after delete = %+v", got)
	}
}

func TestSentNotificationDedup(t *testing.T) {
	ps := NewPushStore(setupTestDB(t))

	sent, err := ps.WasSent(model.NotifTypeConfirmReminder, "ana-2026-10-20-10:00")
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("expected not sent")
	}

	if err := ps.RecordSent(model.NotifTypeConfirmReminder, "ana-2026-10-20-10:00"); err != nil {
		t.Fatalf("record sent: %v", err)
	}
	if err := ps.RecordSent(model.NotifTypeConfirmReminder, "ana-2026-10-20-10:00"); err != nil {
		t.Fatalf("record sent twice: %v", err)
	}

	sent, _ = ps.WasSent(model.NotifTypeConfirmReminder, "ana-2026-10-20-10:00")
	if !sent {
		t.Error("expected sent")
	}
	sent, _ = ps.WasSent(model.NotifTypeChargeReminder, "ana-2026-10-20-10:00")
	if sent {
		t.Error("different type should not be deduped")
	}

	if err := ps.CleanupSent(time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	sent, _ = ps.WasSent(model.NotifTypeConfirmReminder, "ana-2026-10-20-10:00")
	if sent {
		t.Error("expected cleanup to remove record")
	}
}
