package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleMessage_AppendsLine(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{LogDir: dir}

	for _, ev := range []AccountCreatedEvent{
		{UserID: 1, Email: "ava@x.com", Username: "ava", Method: MethodPassword, CreatedAt: "2026-01-02T03:04:05Z"},
		{UserID: 2, Email: "bo@x.com", Username: "bo", Method: MethodGoogle, Trust: "unverified", CreatedAt: "2026-01-02T03:05:00Z"},
	} {
		body, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if err := c.HandleMessage(body); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
	}

	b, err := os.ReadFile(filepath.Join(dir, "accounts.log"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), b)
	}
	if !strings.Contains(lines[0], "user_id=1") || !strings.Contains(lines[0], "trust=-") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "method=google") || !strings.Contains(lines[1], "trust=unverified") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if strings.Contains(string(b), "ava@x.com") {
		t.Error("audit log should not contain email addresses")
	}
}

func TestHandleMessage_BadJSON(t *testing.T) {
	c := &Consumer{LogDir: t.TempDir()}
	if err := c.HandleMessage([]byte("{")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
