package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"tallybook.org/internal/obs"
)

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Out
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := WithRequestID(context.Background(), "req-123")

	if err := LogEvent(ctx, "audit.test", map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "audit.test" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for blank event")
	}
}

func TestLogNewestFirstAndPurge(t *testing.T) {
	var l Log
	l.Append(Entry{ID: "e1", ItemID: strp("a"), Action: ActionPurchase, QtyChange: 3, BalanceAfter: intp(8)})
	l.Append(Entry{ID: "e2", ItemID: strp("b"), Action: ActionManual, QtyChange: -1, BalanceAfter: intp(0)})
	l.Append(Entry{ID: "e3", ItemID: strp("a"), Action: ActionSale, QtyChange: -6, BalanceAfter: intp(2), TxnID: "t2"})

	all := l.Entries()
	if len(all) != 3 || all[0].ID != "e3" || all[2].ID != "e1" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if got := l.Sum("a"); got != -3 {
		t.Fatalf("Sum(a)=%d, want -3", got)
	}
	if got := l.ForTransaction("t2"); len(got) != 1 || got[0].ID != "e3" {
		t.Fatalf("ForTransaction: %+v", got)
	}

	if removed := l.PurgeItem("a"); removed != 2 {
		t.Fatalf("PurgeItem removed %d, want 2", removed)
	}
	if len(l) != 1 || l[0].ID != "e2" {
		t.Fatalf("unexpected log after purge: %+v", l)
	}
}

func TestCloneIsDeep(t *testing.T) {
	var l Log
	l.Append(Entry{ID: "e1", ItemID: strp("a"), BalanceAfter: intp(5)})
	c := l.Clone()
	*c[0].BalanceAfter = 99
	*c[0].ItemID = "zzz"
	if *l[0].BalanceAfter != 5 || *l[0].ItemID != "a" {
		t.Fatalf("clone shares pointers with original")
	}
}
