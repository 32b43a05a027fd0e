package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// DegradedProviderName identifies replies produced without a model.
const DegradedProviderName = "degraded"

// degradedRule is one category of the offline responder. Rules are evaluated
// in slice order and the first match wins.
type degradedRule struct {
	name  string
	match func(words []string) (string, bool)
	reply func(original, term string) string
}

type profession struct {
	keywords []string
	label    string
}

var professions = []profession{
	{keywords: []string{"plumber", "plumbers", "plumbar"}, label: "plumber"},
	{keywords: []string{"electrician", "electricians"}, label: "electrician"},
	{keywords: []string{"carpenter", "carpenters"}, label: "carpenter"},
	{keywords: []string{"painter", "painters"}, label: "painter"},
	{keywords: []string{"cleaner", "cleaners"}, label: "cleaner"},
	{keywords: []string{"mechanic", "mechanics"}, label: "mechanic"},
}

var degradedRules = []degradedRule{
	{
		name:  "greeting",
		match: firstWordIn("hello", "hi", "hey", "namaste"),
		reply: func(string, string) string {
			return fmt.Sprintf("Hello! I'm the %s. How can I help you find services or navigate our platform today? 🇮🇳", assistantName)
		},
	},
	{
		name:  "profession",
		match: matchProfession,
		reply: func(_ string, term string) string {
			return fmt.Sprintf("I can help you find %s %s! Please visit our Services page (%s) to browse professionals in your area. RAHI connects you with trusted local workers. 🛠️", indefiniteArticle(term), term, PathServices)
		},
	},
	{
		name:  "booking",
		match: anyWordIn("book", "hire"),
		reply: func(string, string) string {
			return fmt.Sprintf("To book a service, please visit our Services page (%s) where you can find and hire skilled professionals like electricians, plumbers, and carpenters. Easy booking with fair prices! 💼", PathServices)
		},
	},
	{
		name:  "tracking",
		match: anyWordIn("track", "tracking", "status"),
		reply: func(string, string) string {
			return fmt.Sprintf("You can track your bookings and check status on the Tracking page (%s). Enter your booking ID to see real-time updates! 📍", PathTracking)
		},
	},
	{
		name:  "payment",
		match: anyWordIn("payment", "payments", "pay", "commission"),
		reply: func(string, string) string {
			return "RAHI ensures fair payments with transparent pricing. Workers receive same-day payouts with our low 8-12% commission. Payments are secure and timely! 💰"
		},
	},
}

// indefiniteArticle picks "a" or "an" from the word's first letter. It covers
// the profession labels, which have no silent or consonant-sounding vowels.
func indefiniteArticle(word string) string {
	if word != "" && strings.ContainsRune("aeiou", unicode.ToLower(rune(word[0]))) {
		return "an"
	}
	return "a"
}

func defaultDegradedReply(original string) string {
	return fmt.Sprintf("I understand you're asking about '%s'. As %s, I can help you navigate our platform. Visit %s to find professionals, %s to monitor bookings, or %s to manage your account. How else can I assist? 🤝",
		original, assistantName, PathServices, PathTracking, PathLogin)
}

// DegradedResponder answers from fixed rules when no model is reachable.
// It never fails.
type DegradedResponder struct{}

// NewDegradedResponder returns the offline rule-based responder.
func NewDegradedResponder() *DegradedResponder {
	return &DegradedResponder{}
}

func (d *DegradedResponder) Name() string {
	return DegradedProviderName
}

// Invoke answers the most recent user message in msgs.
func (d *DegradedResponder) Invoke(_ context.Context, msgs []Message) (Message, error) {
	return AssistantMessage(d.Reply(lastUserText(msgs))), nil
}

// Reply returns the rule-based answer for text.
func (d *DegradedResponder) Reply(text string) string {
	reply, _ := d.reply(text)
	return reply
}

// reply also reports which rule answered, for logging.
func (d *DegradedResponder) reply(text string) (string, string) {
	words := tokenize(strings.ToLower(text))
	for _, rule := range degradedRules {
		if term, ok := rule.match(words); ok {
			return rule.reply(text, term), rule.name
		}
	}
	return defaultDegradedReply(text), "default"
}

func tokenize(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func firstWordIn(vocab ...string) func([]string) (string, bool) {
	return func(words []string) (string, bool) {
		if len(words) == 0 {
			return "", false
		}
		for _, v := range vocab {
			if words[0] == v {
				return v, true
			}
		}
		return "", false
	}
}

func anyWordIn(vocab ...string) func([]string) (string, bool) {
	set := make(map[string]struct{}, len(vocab))
	for _, v := range vocab {
		set[v] = struct{}{}
	}
	return func(words []string) (string, bool) {
		for _, w := range words {
			if _, ok := set[w]; ok {
				return w, true
			}
		}
		return "", false
	}
}

// matchProfession reports the first profession mentioned in the text, by
// word order.
func matchProfession(words []string) (string, bool) {
	for _, w := range words {
		for _, p := range professions {
			for _, kw := range p.keywords {
				if w == kw {
					return p.label, true
				}
			}
		}
	}
	return "", false
}
