package store

import (
	"testing"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
	"github.com/shopspring/decimal"
)

func TestReceivableLifecycle(t *testing.T) {
	rs := NewReceivableStore(setupTestDB(t))

	r, err := rs.Create(model.Receivable{
		ClientID: "ana",
		Amount:   decimal.RequireFromString("180.50"),
		DueDate:  "2026-10-10",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected generated ID")
	}
	if !r.Amount.Equal(decimal.RequireFromString("180.5")) {
		t.Errorf("amount = %s, want 180.50", r.Amount)
	}
	if r.Paid || r.PaidAt != nil {
		t.Errorf("new receivable should be open: %+v", r)
	}
	if r.ChargeHistory == nil || len(r.ChargeHistory) != 0 {
		t.Errorf("charge history = %#v, want empty", r.ChargeHistory)
	}

	first := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	r, err = rs.AddCharge(r.ID, model.ChargeEvent{At: first, Channel: "whatsapp"})
	if err != nil {
		t.Fatalf("add charge: %v", err)
	}
	r, _ = rs.AddCharge(r.ID, model.ChargeEvent{At: first.Add(48 * time.Hour), Channel: "sms"})
	if len(r.ChargeHistory) != 2 || r.ChargeHistory[0].Channel != "whatsapp" {
		t.Errorf("charge history = %+v", r.ChargeHistory)
	}

	paidAt := time.Date(2026, 10, 15, 18, 0, 0, 0, time.UTC)
	r, err = rs.MarkPaid(r.ID, paidAt)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !r.Paid || r.PaidAt == nil || !r.PaidAt.Equal(paidAt) {
		t.Errorf("after pay = %+v", r)
	}

	r, _ = rs.MarkPaid(r.ID, paidAt.Add(24*time.Hour))
	if !r.PaidAt.Equal(paidAt) {
		t.Errorf("second pay moved paid_at to %v", r.PaidAt)
	}

	r, err = rs.Reopen(r.ID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if r.Paid || r.PaidAt != nil {
		t.Errorf("after reopen = %+v", r)
	}
	if len(r.ChargeHistory) != 2 {
		t.Errorf("reopen lost charges: %+v", r.ChargeHistory)
	}
}

func TestReceivableMissing(t *testing.T) {
	rs := NewReceivableStore(setupTestDB(t))

	if r, err := rs.AddCharge("nope", model.ChargeEvent{Channel: "sms"}); err != nil || r != nil {
		t.Errorf("AddCharge missing = %+v, %v", r, err)
	}
	if r, err := rs.MarkPaid("nope", time.Now()); err != nil || r != nil {
		t.Errorf("MarkPaid missing = %+v, %v", r, err)
	}
}

func TestReceivableLists(t *testing.T) {
	rs := NewReceivableStore(setupTestDB(t))

	a, _ := rs.Create(model.Receivable{ClientID: "ana", Amount: decimal.NewFromInt(100), DueDate: "2026-09-10"})
	rs.Create(model.Receivable{ClientID: "ana", Amount: decimal.NewFromInt(100), DueDate: "2026-10-10",
		ChargeHistory: []model.ChargeEvent{{At: time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), Channel: "call"}}})
	rs.Create(model.Receivable{ClientID: "bia", Amount: decimal.NewFromInt(90), DueDate: "2026-10-05"})
	rs.MarkPaid(a.ID, time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC))

	all, err := rs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].DueDate != "2026-09-10" {
		t.Errorf("all = %+v", all)
	}

	open, _ := rs.ListOpen()
	if len(open) != 2 {
		t.Errorf("open = %d, want 2", len(open))
	}

	ana, _ := rs.ListByClient("ana")
	if len(ana) != 2 {
		t.Fatalf("ana = %d, want 2", len(ana))
	}
	if len(ana[1].ChargeHistory) != 1 || ana[1].ChargeHistory[0].Channel != "call" {
		t.Errorf("ana[1] charges = %+v", ana[1].ChargeHistory)
	}

	if err := rs.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ = rs.List()
	if len(all) != 2 {
		t.Errorf("after delete = %d, want 2", len(all))
	}
}
