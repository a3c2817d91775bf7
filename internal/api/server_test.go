package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/circulo/circulo/internal/app/circulation"
	"github.com/circulo/circulo/internal/infra/sqlite"
)

type testClock struct {
	day time.Time
}

func (c *testClock) Today() time.Time { return c.day }

type testNotifier struct {
	sent int
}

func (n *testNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.sent++
	return nil
}

type testServer struct {
	ts       *httptest.Server
	clock    *testClock
	notifier *testNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := &testClock{day: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)}
	notifier := &testNotifier{}
	svc := circulation.New(clock,
		sqlite.NewAuthorStore(db), sqlite.NewTitleStore(db), sqlite.NewPatronStore(db),
		sqlite.NewLoanStore(db, ""), sqlite.NewFineStore(db, ""),
		notifier, circulation.DefaultPolicy())

	ts := httptest.NewServer(NewServer(svc).Handler())
	t.Cleanup(ts.Close)
	return &testServer{ts: ts, clock: clock, notifier: notifier}
}

// call sends a JSON request and decodes the JSON response into a map.
func (s *testServer) call(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return resp.StatusCode, out
}

// seed creates an author, a title and a patron, returning the title id.
func (s *testServer) seed(t *testing.T, copies int, cost float64) (titleID float64) {
	t.Helper()
	status, author := s.call(t, http.MethodPost, "/api/authors", map[string]any{
		"name": "Isaac", "surname": "Asimov",
	})
	if status != http.StatusCreated {
		t.Fatalf("create author: status %d", status)
	}
	status, title := s.call(t, http.MethodPost, "/api/titles", map[string]any{
		"name": "Fundacion", "author_id": author["id"],
		"total_copies": copies, "replacement_cost": cost,
	})
	if status != http.StatusCreated {
		t.Fatalf("create title: status %d", status)
	}
	status, _ = s.call(t, http.MethodPost, "/api/patrons", map[string]any{
		"name": "Juan Perez", "identity": "0926687856",
		"email": "juan@example.com", "category": "STUDENT",
	})
	if status != http.StatusCreated {
		t.Fatalf("create patron: status %d", status)
	}
	return title["id"].(float64)
}

func (s *testServer) draftLoan(t *testing.T, titleID float64) string {
	t.Helper()
	status, loan := s.call(t, http.MethodPost, "/api/loans", map[string]any{
		"title_id": titleID, "patron_id": 1,
	})
	if status != http.StatusCreated {
		t.Fatalf("create draft: status %d, body %v", status, loan)
	}
	return loan["code"].(string)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.call(t, http.MethodGet, "/health", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("GET /health = %d %v", status, body)
	}
}

func TestLoanLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	titleID := s.seed(t, 2, 20.00)
	code := s.draftLoan(t, titleID)

	status, loan := s.call(t, http.MethodPost, "/api/loans/"+code+"/activate", nil)
	if status != http.StatusOK {
		t.Fatalf("activate: status %d, body %v", status, loan)
	}
	if loan["state"] != "ACTIVE" || loan["due_date"] == nil {
		t.Errorf("activated loan = %v, want ACTIVE with due date", loan)
	}

	status, avail := s.call(t, http.MethodGet, fmt.Sprintf("/api/titles/%.0f/availability", titleID), nil)
	if status != http.StatusOK || avail["available_copies"].(float64) != 1 {
		t.Errorf("availability = %d %v, want 1 free copy", status, avail)
	}

	// 5 days late.
	s.clock.day = s.clock.day.AddDate(0, 0, 7)
	status, ret := s.call(t, http.MethodPost, "/api/loans/"+code+"/return",
		map[string]any{"condition": "GOOD"})
	if status != http.StatusOK {
		t.Fatalf("return: status %d, body %v", status, ret)
	}
	if !strings.Contains(ret["summary"].(string), "5.00") {
		t.Errorf("summary = %q, want the 5.00 overdue fine", ret["summary"])
	}

	status, fines := s.call(t, http.MethodGet, "/api/loans/"+code+"/fines", nil)
	if status != http.StatusOK {
		t.Fatalf("fines: status %d", status)
	}
	if fines["outstanding"].(float64) != 5.00 {
		t.Errorf("outstanding = %v, want 5.00", fines["outstanding"])
	}

	// Pay the fine and confirm the balance clears.
	list := fines["fines"].([]any)
	fineCode := list[0].(map[string]any)["code"].(string)
	if status, _ := s.call(t, http.MethodPost, "/api/fines/"+fineCode+"/pay", nil); status != http.StatusOK {
		t.Fatalf("pay fine: status %d", status)
	}
	_, fines = s.call(t, http.MethodGet, "/api/loans/"+code+"/fines", nil)
	if fines["outstanding"].(float64) != 0 {
		t.Errorf("outstanding after payment = %v, want 0", fines["outstanding"])
	}
	if fines["total"].(float64) != 5.00 {
		t.Errorf("total after payment = %v, want still 5.00", fines["total"])
	}
}

func TestActivateConflicts(t *testing.T) {
	s := newTestServer(t)
	titleID := s.seed(t, 1, 20.00)
	code := s.draftLoan(t, titleID)

	if status, _ := s.call(t, http.MethodPost, "/api/loans/"+code+"/activate", nil); status != http.StatusOK {
		t.Fatalf("first activate: status %d", status)
	}
	if status, _ := s.call(t, http.MethodPost, "/api/loans/"+code+"/activate", nil); status != http.StatusConflict {
		t.Errorf("second activate: status %d, want 409", status)
	}

	// The single copy is out: a second loan cannot activate.
	second := s.draftLoan(t, titleID)
	if status, _ := s.call(t, http.MethodPost, "/api/loans/"+second+"/activate", nil); status != http.StatusConflict {
		t.Errorf("activate with no copies: status %d, want 409", status)
	}
}

func TestCreatePatron_RejectsBadIdentity(t *testing.T) {
	s := newTestServer(t)
	status, body := s.call(t, http.MethodPost, "/api/patrons", map[string]any{
		"name": "Juan Perez", "identity": "092668785",
		"email": "juan@example.com", "category": "STUDENT",
	})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body %v", status, body)
	}
}

func TestGetLoan_NotFound(t *testing.T) {
	s := newTestServer(t)
	if status, _ := s.call(t, http.MethodGet, "/api/loans/BLB-999", nil); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestSweepEndpoint(t *testing.T) {
	s := newTestServer(t)
	titleID := s.seed(t, 2, 20.00)
	code := s.draftLoan(t, titleID)
	if status, _ := s.call(t, http.MethodPost, "/api/loans/"+code+"/activate", nil); status != http.StatusOK {
		t.Fatal("activate failed")
	}
	s.clock.day = s.clock.day.AddDate(0, 0, 6) // 4 days past due

	status, res := s.call(t, http.MethodPost, "/api/sweep", nil)
	if status != http.StatusOK {
		t.Fatalf("sweep: status %d", status)
	}
	if res["examined"].(float64) != 1 || res["fines_created"].(float64) != 1 {
		t.Errorf("sweep result = %v, want examined=1 fines_created=1", res)
	}

	_, loan := s.call(t, http.MethodGet, "/api/loans/"+code, nil)
	if loan["state"] != "DELINQUENT" {
		t.Errorf("state = %v, want DELINQUENT", loan["state"])
	}
}

func TestNotifyEndpoint(t *testing.T) {
	s := newTestServer(t)
	titleID := s.seed(t, 2, 20.00)
	code := s.draftLoan(t, titleID)
	if status, _ := s.call(t, http.MethodPost, "/api/loans/"+code+"/activate", nil); status != http.StatusOK {
		t.Fatal("activate failed")
	}
	s.clock.day = s.clock.day.AddDate(0, 0, 6)
	if status, _ := s.call(t, http.MethodPost, "/api/sweep", nil); status != http.StatusOK {
		t.Fatal("sweep failed")
	}

	status, body := s.call(t, http.MethodPost, "/api/loans/"+code+"/notify", nil)
	if status != http.StatusOK || body["status"] != "sent" {
		t.Errorf("notify = %d %v, want 200 sent", status, body)
	}
	if s.notifier.sent != 1 {
		t.Errorf("notifier.sent = %d, want 1", s.notifier.sent)
	}
}

func TestReturn_RejectsUnknownCondition(t *testing.T) {
	s := newTestServer(t)
	titleID := s.seed(t, 2, 20.00)
	code := s.draftLoan(t, titleID)
	status, _ := s.call(t, http.MethodPost, "/api/loans/"+code+"/return",
		map[string]any{"condition": "SOGGY"})
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}
