package handler

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseTopic(t *testing.T) {
	uid := uuid.New()

	got, err := ParseTopic("user." + uid.String() + ".notifications")
	if err != nil {
		t.Fatalf("ParseTopic: %v", err)
	}
	if got != uid {
		t.Fatalf("uid = %s, want %s", got, uid)
	}
}

func TestParseTopicRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"user.notifications",
		"user." + uuid.New().String() + ".messages",
		"loop." + uuid.New().String() + ".notifications",
		"user.not-a-uuid.notifications",
		"user." + uuid.New().String() + ".notifications.extra",
	}
	for _, topic := range cases {
		if _, err := ParseTopic(topic); err == nil {
			t.Errorf("ParseTopic(%q) accepted a malformed topic", topic)
		}
	}
}
