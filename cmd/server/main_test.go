package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/grammarhour/bookbot/internal/book"
	"github.com/grammarhour/bookbot/internal/engine"
)

const testBook = `{
  "chapters": [
    {
      "chapter_id": 1,
      "title": "Tenses",
      "image_url": "https://img.example/ch1.png",
      "sections": [
        {"section_id": 1, "type": "content", "content": "Present simple."},
        {"section_id": 2, "type": "quiz", "content": {"question": "Past tense of go?", "options": {"A": "goed", "B": "went"}, "answer": "B"}}
      ]
    }
  ]
}`

func testMux(t *testing.T) *http.ServeMux {
	t.Helper()
	catalog, err := book.Parse([]byte(testBook), book.FormatJSON)
	if err != nil {
		t.Fatalf("parsing test book: %v", err)
	}
	core := engine.New(engine.Config{Catalog: catalog})
	return newMux(core, catalog, nil, nil)
}

func postAction(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/actions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	mux := testMux(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"chapters":1`) {
		t.Errorf("body = %s, want chapter count", rec.Body.String())
	}
}

func TestReadyz_NoBackends(t *testing.T) {
	mux := testMux(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	// With no database or cache configured there is nothing to wait on.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleAction_StartChapter(t *testing.T) {
	mux := testMux(t)

	rec := postAction(t, mux, `{"user_id":"u1","type":"start_chapter","chapter_id":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Kind != "content" {
		t.Errorf("kind = %q, want content", resp.Kind)
	}
}

func TestHandleAction_SubmitAnswer(t *testing.T) {
	mux := testMux(t)

	rec := postAction(t, mux, `{"user_id":"u1","type":"submit_answer","chapter_id":1,"section_id":2,"label":"B"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Kind string `json:"kind"`
		View struct {
			Correct bool `json:"Correct"`
		} `json:"view"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Kind != "graded" {
		t.Errorf("kind = %q, want graded", resp.Kind)
	}
	if !resp.View.Correct {
		t.Error("Correct = false, want true")
	}
}

func TestHandleAction_UnknownChapterIsErrorView(t *testing.T) {
	mux := testMux(t)

	rec := postAction(t, mux, `{"user_id":"u1","type":"navigate","chapter_id":9,"section_id":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Kind != "error" {
		t.Errorf("kind = %q, want error", resp.Kind)
	}
}

func TestHandleReport(t *testing.T) {
	mux := testMux(t)

	// One wrong and one correct submission so both sheets have data.
	for _, label := range []string{"A", "B"} {
		rec := postAction(t, mux, `{"user_id":"u1","type":"submit_answer","chapter_id":1,"section_id":2,"label":"`+label+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("submit status = %d; body = %s", rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/reports/u1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q, want spreadsheet", ct)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	user, err := f.GetCellValue("Summary", "B1")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if user != "u1" {
		t.Errorf("Summary!B1 = %q, want u1", user)
	}
	rows, err := f.GetRows("Weakest Sections")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	// Header plus the one section with a wrong answer.
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
}

func TestHandleAction_BadRequests(t *testing.T) {
	mux := testMux(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing user_id", `{"type":"resume"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAction(t, mux, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
