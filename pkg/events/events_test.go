package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/syndrizzle/briq/pkg/webhooks"
)

func TestRecorderCollectsInOrder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(context.Background(), Event{Kind: "A", At: 1})
	rec.Emit(context.Background(), Event{Kind: "B", At: 2})
	rec.Emit(context.Background(), Event{Kind: "A", At: 3})

	got := rec.Events()
	if len(got) != 3 || got[0].Kind != "A" || got[1].Kind != "B" {
		t.Fatalf("unexpected events: %+v", got)
	}
	if rec.Kinds()["A"] != 2 {
		t.Fatalf("expected two A events")
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi(a, b).Emit(context.Background(), Event{Kind: "X", At: 1})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}

func TestWebhookSinkSignsBody(t *testing.T) {
	var gotHeaders http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "s3cret")
	sink.Emit(context.Background(), Event{Kind: "AgreementCreated", At: 42, Fields: map[string]any{"agreement_id": "agr_x"}})

	sum := sha256.Sum256(gotBody)
	if gotHeaders.Get("X-Briq-Content-Sha256") != hex.EncodeToString(sum[:]) {
		t.Fatalf("hash header does not match body")
	}
	res, err := webhooks.Verify(gotHeaders, gotBody, "s3cret")
	if err != nil || !res.Valid {
		t.Fatalf("signature did not verify: %+v err=%v", res, err)
	}
	if res.EventKind != "AgreementCreated" {
		t.Fatalf("event kind header = %q", res.EventKind)
	}
	var e Event
	if err := json.Unmarshal(gotBody, &e); err != nil || e.Kind != "AgreementCreated" {
		t.Fatalf("unexpected body: %s err=%v", gotBody, err)
	}
}
