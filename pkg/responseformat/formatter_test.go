package responseformat

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	Name   string   `json:"name"`
	Values Float64s `json:"values"`
}

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	err := NewFormatter().WriteStatus(rec, req, http.StatusCreated, payload{"a", Float64s{1.5, math.NaN()}}, map[string]string{"X-Run": "1"})
	if err != nil {
		t.Fatalf("WriteStatus() error = %v", err)
	}
	if rec.Code != http.StatusCreated || rec.Header().Get("Content-Type") != "application/json" || rec.Header().Get("X-Run") != "1" {
		t.Errorf("status %d, headers %v", rec.Code, rec.Header())
	}
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != `{"name":"a","values":[1.5,null]}` {
		t.Errorf("body = %s", got)
	}

	var back payload
	if err := json.Unmarshal(rec.Body.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Values) != 2 || !math.IsNaN(back.Values[1]) {
		t.Errorf("null should decode as NaN, got %v", back.Values)
	}
}

func TestWriteResponseMsgPack(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x?format=msgpack", nil)

	if err := NewFormatter().WriteResponse(rec, req, payload{"b", Float64s{2}}, nil); err != nil {
		t.Fatalf("WriteResponse() error = %v", err)
	}
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/x-msgpack" {
		t.Errorf("status %d, headers %v", rec.Code, rec.Header())
	}

	dec := msgpack.NewDecoder(rec.Body)
	dec.SetCustomStructTag("json")
	var back payload
	if err := dec.Decode(&back); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if back.Name != "b" || len(back.Values) != 1 || back.Values[0] != 2 {
		t.Errorf("decoded = %+v", back)
	}
}
