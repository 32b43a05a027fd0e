package conversation

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{"flat text", TextContent{Text: "Hello there"}, "Hello there"},
		{"empty text", TextContent{}, ""},
		{
			name: "text parts joined with spaces",
			content: PartsContent{Parts: []Part{
				TextPart{Type: "text", Text: "Visit"},
				TextPart{Type: "text", Text: "/services"},
			}},
			want: "Visit /services",
		},
		{
			name: "data part contributes nothing",
			content: PartsContent{Parts: []Part{
				TextPart{Type: "text", Text: "a"},
				DataPart{Type: "image"},
				TextPart{Type: "text", Text: "b"},
			}},
			want: "a  b",
		},
		{
			name:    "raw part uses its value",
			content: PartsContent{Parts: []Part{RawPart{Value: "42"}, TextPart{Text: "items"}}},
			want:    "42 items",
		},
		{"no parts", PartsContent{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.content)
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_IsIdempotentOnText(t *testing.T) {
	for _, s := range []string{"", "plain", "  spaced  ", "multi\nline"} {
		once, err := Normalize(TextContent{Text: s})
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", s, err)
		}
		twice, err := Normalize(TextContent{Text: once})
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", once, err)
		}
		if once != s || twice != s {
			t.Fatalf("expected %q unchanged, got %q then %q", s, once, twice)
		}
	}
}

func TestNormalize_UnrecognizedContent(t *testing.T) {
	if _, err := Normalize(nil); !errors.Is(err, ErrUnrecognizedContent) {
		t.Fatalf("expected ErrUnrecognizedContent for nil, got %v", err)
	}
	if _, err := Normalize(PartsContent{Parts: []Part{nil}}); !errors.Is(err, ErrUnrecognizedContent) {
		t.Fatalf("expected ErrUnrecognizedContent for nil part, got %v", err)
	}
}

func TestConversation_MessagesIsACopy(t *testing.T) {
	conv := NewConversation(UserMessage("hi"))
	msgs := conv.Messages()
	msgs[0] = AssistantMessage("changed")

	if got := conv.Messages()[0].Role; got != RoleUser {
		t.Fatalf("conversation mutated through copy: role %s", got)
	}
	conv.Append(AssistantMessage("hello"))
	if conv.Len() != 2 || conv.UserTurns() != 1 {
		t.Fatalf("unexpected counts: len=%d user=%d", conv.Len(), conv.UserTurns())
	}
}
