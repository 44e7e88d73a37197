package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/moon", nil)

	if err := NewFormatter().WriteResponse(rec, req, payload{"moon", 0.5}, map[string]string{"Cache-Control": "no-store"}); err != nil {
		t.Fatal(err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("extra header missing")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("CORS header missing")
	}

	var got payload
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "moon" || got.Value != 0.5 {
		t.Errorf("decoded %+v", got)
	}
}

func TestWriteResponseMsgPack(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/moon?format=msgpack", nil)

	if err := NewFormatter().WriteResponse(rec, req, payload{"sun", 1}, nil); err != nil {
		t.Fatal(err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got map[string]any
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "sun" {
		t.Errorf("msgpack should use json field names, got %v", got)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/observe", nil)

	NewFormatter().WriteError(rec, req, http.StatusBadRequest, "bad date")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "bad date" || body.Status != http.StatusBadRequest {
		t.Errorf("body = %+v", body)
	}
}
