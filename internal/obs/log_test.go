package obs

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestLogErrorIsStructured(t *testing.T) {
	logger := Logger()
	original := logger.Out
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	LogError("ledger", "EditTransaction", "rollback", map[string]string{"txn": "t1"}, errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["msg"] != "boom" || entry["level"] != "error" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["module"] != "ledger" || entry["funcName"] != "EditTransaction" {
		t.Fatalf("missing location fields: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
}
