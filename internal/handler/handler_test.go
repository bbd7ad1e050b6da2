package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/clientbook/internal/agenda"
	"github.com/dukerupert/clientbook/internal/backup"
	"github.com/dukerupert/clientbook/internal/database"
	"github.com/dukerupert/clientbook/internal/feed"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/push"
	"github.com/dukerupert/clientbook/internal/risk"
	"github.com/dukerupert/clientbook/internal/store"
	"github.com/dukerupert/clientbook/internal/websocket"
)

type fixture struct {
	db      *sql.DB
	clients *store.ClientStore
	watcher *feed.Watcher
	mux     *http.ServeMux
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cs := store.NewClientStore(db)
	rs := store.NewReceivableStore(db)
	ovs := store.NewOverrideStore(db)
	ps := store.NewPushStore(db)
	watcher := feed.NewWatcher(0, logger)
	hub := websocket.NewHub(logger)
	ag := agenda.New(cs, rs, watcher, risk.NewScorer(risk.DefaultWeights()))

	clientH := NewClientHandler(cs, ag, hub, logger)
	overrideH := NewOverrideHandler(ovs, watcher, nil, logger)
	scheduleH := NewScheduleHandler(ag, logger)
	receivableH := NewReceivableHandler(rs, cs, ag, hub, logger)
	pushH := NewPushHandler(ps, push.NewService("", "", "", ps, logger), logger)
	backupH := NewBackupHandler(backup.NewManager(backup.Config{}, db, store.NewBackupStore(db), logger, nil), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/clients", clientH.List)
	mux.HandleFunc("POST /api/clients", clientH.Create)
	mux.HandleFunc("PUT /api/clients/{id}", clientH.Update)
	mux.HandleFunc("DELETE /api/clients/{id}", clientH.Delete)
	mux.HandleFunc("GET /api/clients/{id}/risk", clientH.Risk)
	mux.HandleFunc("GET /api/clients/{id}/upcoming", clientH.Upcoming)
	mux.HandleFunc("POST /api/overrides", overrideH.Create)
	mux.HandleFunc("GET /api/schedule", scheduleH.Schedule)
	mux.HandleFunc("GET /api/tasks", scheduleH.Tasks)
	mux.HandleFunc("GET /calendar.ics", scheduleH.Calendar)
	mux.HandleFunc("GET /api/receivables", receivableH.List)
	mux.HandleFunc("POST /api/receivables", receivableH.Create)
	mux.HandleFunc("POST /api/receivables/{id}/pay", receivableH.Pay)
	mux.HandleFunc("POST /api/receivables/{id}/reopen", receivableH.Reopen)
	mux.HandleFunc("POST /api/receivables/{id}/charges", receivableH.Charge)
	mux.HandleFunc("POST /api/push/subscribe", pushH.Subscribe)
	mux.HandleFunc("GET /api/push/vapid-key", pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/backups", backupH.Run)
	mux.HandleFunc("GET /api/backups", backupH.List)

	return fixture{db: db, clients: cs, watcher: watcher, mux: mux}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f fixture) client(t *testing.T, id, name string, weekdays ...string) {
	t.Helper()
	if _, err := f.clients.Create(model.Client{ID: id, Name: name, Weekdays: weekdays, DefaultTime: "10:00"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestClientLifecycle(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "POST", "/api/clients", `{"name":"Ana","weekdays":["Mon","Wed"],"default_time":"10:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	created := decode[model.Client](t, rec)
	if created.ID == "" || created.Name != "Ana" {
		t.Fatalf("created = %+v", created)
	}

	rec = f.do(t, "PUT", "/api/clients/"+created.ID, `{"name":"Ana Paula","weekdays":["Fri"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode[model.Client](t, rec); got.Name != "Ana Paula" {
		t.Errorf("updated name = %q", got.Name)
	}

	rec = f.do(t, "GET", "/api/clients/"+created.ID+"/risk", "")
	if rec.Code != http.StatusOK {
		t.Errorf("risk status = %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/clients/"+created.ID+"/upcoming?days=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("upcoming status = %d", rec.Code)
	}
	var upcoming struct {
		Visits []time.Time `json:"visits"`
	}
	json.NewDecoder(rec.Body).Decode(&upcoming)
	if len(upcoming.Visits) != 1 || upcoming.Visits[0].Weekday() != time.Friday {
		t.Errorf("visits = %v, want one Friday", upcoming.Visits)
	}

	rec = f.do(t, "DELETE", "/api/clients/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = f.do(t, "GET", "/api/clients", "")
	if got := decode[[]model.Client](t, rec); len(got) != 0 {
		t.Errorf("clients after delete = %+v", got)
	}
}

func TestClientValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"missing name", "POST", "/api/clients", `{"weekdays":["Mon"]}`, http.StatusBadRequest},
		{"bad weekday", "POST", "/api/clients", `{"name":"Ana","weekdays":["Someday"]}`, http.StatusBadRequest},
		{"bad json", "POST", "/api/clients", `{`, http.StatusBadRequest},
		{"update missing", "PUT", "/api/clients/nobody", `{"name":"X"}`, http.StatusNotFound},
		{"delete missing", "DELETE", "/api/clients/nobody", "", http.StatusNotFound},
		{"risk missing", "GET", "/api/clients/nobody/risk", "", http.StatusNotFound},
		{"upcoming missing", "GET", "/api/clients/nobody/upcoming", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, tt.method, tt.target, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestOverrideMovesAppointment(t *testing.T) {
	f := setup(t)
	f.client(t, "ana", "Ana", "Mon", "Wed")

	rec := f.do(t, "POST", "/api/overrides", `{"key":"ana-2026-10-21-10:00","action":"reschedule","time":"14:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("override status = %d, body %s", rec.Code, rec.Body)
	}
	saved := decode[model.OverrideWrite](t, rec)
	if saved.Seq == 0 || saved.HasPendingWrites {
		t.Errorf("saved = %+v, want confirmed with a sequence", saved)
	}
	if f.watcher.Size() != 1 {
		t.Errorf("watcher size = %d, want 1", f.watcher.Size())
	}

	rec = f.do(t, "GET", "/api/schedule?date=2026-10-21", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("schedule status = %d", rec.Code)
	}
	var body struct {
		DateKey      string `json:"date_key"`
		Appointments []struct {
			Key  string `json:"appointment_key"`
			Time string `json:"time"`
		} `json:"appointments"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if body.DateKey != "2026-10-21" || len(body.Appointments) != 1 {
		t.Fatalf("schedule = %+v", body)
	}
	if a := body.Appointments[0]; a.Time != "14:00" || a.Key != "ana-2026-10-21-14:00" {
		t.Errorf("appointment = %+v, want ana at 14:00", a)
	}
}

func TestOverrideValidation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body string
	}{
		{"no identity", `{"action":"skip"}`},
		{"unknown action", `{"client_id":"ana","date_key":"2026-10-21","action":"explode"}`},
		{"unknown status", `{"client_id":"ana","date_key":"2026-10-21","status":"lost"}`},
		{"bad json", `[`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, "POST", "/api/overrides", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestOverrideRolledBackWhenSaveFails(t *testing.T) {
	f := setup(t)
	f.db.Close()

	rec := f.do(t, "POST", "/api/overrides", `{"client_id":"ana","date_key":"2026-10-21","action":"skip"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if f.watcher.Size() != 0 {
		t.Errorf("watcher size = %d, want the pending write discarded", f.watcher.Size())
	}
	if f.watcher.Canonical().Len() != 0 {
		t.Errorf("canonical still holds the write")
	}
}

func TestScheduleRejectsBadDate(t *testing.T) {
	f := setup(t)
	if rec := f.do(t, "GET", "/api/schedule?date=21/10/2026", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReceivableFlow(t *testing.T) {
	f := setup(t)
	f.client(t, "ana", "Ana", "Wed")

	rec := f.do(t, "POST", "/api/receivables", `{"client_id":"ana","amount":"150.00","due_date":"2026-10-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	r := decode[model.Receivable](t, rec)
	if r.Amount.StringFixed(2) != "150.00" || r.ClientID != "ana" {
		t.Errorf("amount = %s", r.Amount)
	}

	rec = f.do(t, "POST", "/api/receivables/"+r.ID+"/charges", `{"channel":"whatsapp"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("charge status = %d", rec.Code)
	}
	if got := decode[model.Receivable](t, rec); len(got.ChargeHistory) != 1 || got.ChargeHistory[0].Channel != "whatsapp" {
		t.Errorf("charge history = %+v", got.ChargeHistory)
	}

	rec = f.do(t, "GET", "/api/receivables", "")
	if got := decode[[]map[string]any](t, rec); len(got) != 1 || got[0]["client_name"] != "Ana" {
		t.Errorf("open = %+v", got)
	}

	rec = f.do(t, "POST", "/api/receivables/"+r.ID+"/pay", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("pay status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode[model.Receivable](t, rec); !got.Paid || got.PaidAt == nil {
		t.Errorf("paid = %+v", got)
	}

	rec = f.do(t, "GET", "/api/receivables", "")
	if got := decode[[]map[string]any](t, rec); len(got) != 0 {
		t.Errorf("open after pay = %+v", got)
	}

	rec = f.do(t, "POST", "/api/receivables/"+r.ID+"/reopen", "")
	if got := decode[model.Receivable](t, rec); got.Paid {
		t.Errorf("reopened = %+v", got)
	}
}

func TestReceivableValidation(t *testing.T) {
	f := setup(t)
	f.client(t, "ana", "Ana", "Wed")

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"bad amount", "/api/receivables", `{"client_id":"ana","amount":"lots","due_date":"2026-10-01"}`, http.StatusBadRequest},
		{"negative amount", "/api/receivables", `{"client_id":"ana","amount":"-5","due_date":"2026-10-01"}`, http.StatusBadRequest},
		{"bad due date", "/api/receivables", `{"client_id":"ana","amount":"5","due_date":"soon"}`, http.StatusBadRequest},
		{"unknown client", "/api/receivables", `{"client_id":"zed","amount":"5","due_date":"2026-10-01"}`, http.StatusBadRequest},
		{"pay missing", "/api/receivables/nope/pay", "", http.StatusNotFound},
		{"charge without channel", "/api/receivables/nope/charges", `{}`, http.StatusBadRequest},
		{"charge missing", "/api/receivables/nope/charges", `{"channel":"call"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := f.do(t, "POST", tt.target, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestTasksEmptyDayIsDone(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "GET", "/api/tasks?date=2026-10-21", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[tasksResponse](t, rec)
	if len(got.Tasks) != 1 || got.Tasks[0].Type != model.TaskDone {
		t.Fatalf("tasks = %+v", got.Tasks)
	}
	if got.Progress.Percent != 100 {
		t.Errorf("progress = %+v", got.Progress)
	}
}

func TestCalendarExport(t *testing.T) {
	f := setup(t)
	f.client(t, "ana", "Ana", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun")

	for _, days := range []string{"0", "91", "x"} {
		if rec := f.do(t, "GET", "/calendar.ics?days="+days, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s: status = %d, want 400", days, rec.Code)
		}
	}

	rec := f.do(t, "GET", "/calendar.ics?days=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") {
		t.Fatalf("body is not a calendar: %s", body)
	}
	if n := strings.Count(body, "BEGIN:VEVENT"); n != 3 {
		t.Errorf("events = %d, want 3", n)
	}
}

func TestPushEndpoints(t *testing.T) {
	f := setup(t)

	if rec := f.do(t, "GET", "/api/push/vapid-key", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("vapid key status = %d, want 503", rec.Code)
	}
	if rec := f.do(t, "POST", "/api/push/subscribe", `{"endpoint":"https://push.example/1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete subscribe status = %d, want 400", rec.Code)
	}
	rec := f.do(t, "POST", "/api/push/subscribe", `{"endpoint":"https://push.example/1","p256dh":"k","auth":"a","device_name":"phone"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe status = %d, body %s", rec.Code, rec.Body)
	}
	if sub := decode[model.PushSubscription](t, rec); sub.ID == 0 || sub.DeviceName != "phone" {
		t.Errorf("subscription = %+v", sub)
	}
}

func TestBackupNotConfigured(t *testing.T) {
	f := setup(t)

	if rec := f.do(t, "POST", "/api/backups", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("run status = %d, want 503", rec.Code)
	}
	rec := f.do(t, "GET", "/api/backups", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var body struct {
		Status  backup.Status  `json:"status"`
		Backups []model.Backup `json:"backups"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status.State != backup.StateDisabled || len(body.Backups) != 0 {
		t.Errorf("body = %+v", body)
	}
}
