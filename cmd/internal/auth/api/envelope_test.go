package authapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteEnveloped_NoRotationPassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	writeEnveloped(rec, req, http.StatusOK, map[string]any{"a": 1})

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["newAccessToken"]; ok {
		t.Fatalf("unexpected rotation fields: %v", body)
	}
	if body["a"] != float64(1) {
		t.Fatalf("payload lost: %v", body)
	}
}

func TestWriteEnveloped_MergesRotation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(withRotation(req.Context(), rotation{
		NewAccessToken: "tok",
		IdentityID:     "id-1",
		Handle:         "ada",
		Name:           "Ada L",
	}))
	rec := httptest.NewRecorder()

	writeEnveloped(rec, req, http.StatusOK, map[string]any{"payload": "x"})

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["payload"] != "x" {
		t.Fatalf("handler payload lost: %v", body)
	}
	if body["newAccessToken"] != "tok" || body["identityId"] != "id-1" || body["handle"] != "ada" {
		t.Fatalf("rotation fields missing: %v", body)
	}
	if _, ok := body["avatarRef"]; ok {
		t.Fatalf("empty avatarRef must be omitted: %v", body)
	}
}

func TestWriteEnveloped_NonObjectBodyWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(withRotation(req.Context(), rotation{NewAccessToken: "tok"}))
	rec := httptest.NewRecorder()

	writeEnveloped(rec, req, http.StatusOK, []int{1, 2, 3})

	var arr []int
	if err := json.Unmarshal(rec.Body.Bytes(), &arr); err != nil {
		t.Fatalf("expected array body, got %q: %v", rec.Body.String(), err)
	}
	if len(arr) != 3 {
		t.Fatalf("payload lost: %v", arr)
	}
}
