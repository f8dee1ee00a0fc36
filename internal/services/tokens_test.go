package services

import (
	"strings"
	"testing"

	"pastelchat/internal/models"
)

func TestNewHistoryTrimmer_DisabledByDefault(t *testing.T) {
	trimmer, err := NewHistoryTrimmer(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trimmer != nil {
		t.Fatalf("expected nil trimmer for zero budget")
	}

	msgs := []models.ChatMessage{{Role: "system", Content: "s"}, {Role: "user", Content: "a"}, {Role: "user", Content: "b"}}
	got, err := trimmer.Trim(msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(msgs) {
		t.Errorf("nil trimmer must not drop messages, got %d", len(got))
	}
}

func TestHistoryTrimmer_DropsOldestFirst(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	msgs := []models.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: long},
		{Role: "assistant", Content: long},
		{Role: "user", Content: "latest question"},
	}

	trimmer, err := NewHistoryTrimmer(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := trimmer.Trim(msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[0].Role != "system" {
		t.Errorf("system message must stay first, got %+v", got[0])
	}
	if got[len(got)-1].Content != "latest question" {
		t.Errorf("latest message must be kept, got %+v", got[len(got)-1])
	}
	if len(got) != 2 {
		t.Errorf("expected both long messages to be trimmed, got %d messages", len(got))
	}

	n, err := trimmer.Count(got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n > 100 {
		t.Errorf("expected trimmed prompt within budget, got %d tokens", n)
	}
}

func TestHistoryTrimmer_KeepsWhenWithinBudget(t *testing.T) {
	msgs := []models.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "how are you"},
	}

	trimmer, err := NewHistoryTrimmer(4000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := trimmer.Trim(msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(msgs) {
		t.Errorf("expected no trimming, got %d of %d", len(got), len(msgs))
	}
}
