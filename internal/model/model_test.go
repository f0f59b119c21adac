package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	t.Parallel()

	u := User{
		ID:           "01HZX",
		Email:        "a@x.com",
		Name:         "A",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}

	if strings.Contains(string(data), "argon2id") || strings.Contains(string(data), "password") {
		t.Errorf("serialized user leaks credential: %s", data)
	}
}

func TestMessage_WireNames(t *testing.T) {
	t.Parallel()

	m := Message{ID: "m1", SenderID: "a", ReceiverID: "b", Subject: "hi", Body: "hello"}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"id", "sender", "receiver", "subject", "message", "creation_date", "did_read"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in %s", key, data)
		}
	}
}

func TestMessage_IsParticipant(t *testing.T) {
	t.Parallel()

	m := &Message{SenderID: "alice", ReceiverID: "bob"}

	tests := []struct {
		name   string
		userID string
		want   bool
	}{
		{"sender", "alice", true},
		{"receiver", "bob", true},
		{"stranger", "carol", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := m.IsParticipant(tt.userID); got != tt.want {
				t.Errorf("IsParticipant(%q) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestSession_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}

	if s.IsExpired(now) {
		t.Error("session should not be expired before ExpiresAt")
	}
	if !s.IsExpired(now.Add(time.Minute)) {
		t.Error("session should be expired at ExpiresAt")
	}
}
