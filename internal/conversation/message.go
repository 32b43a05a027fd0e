package conversation

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Content is either flat text or an ordered list of parts. The set of
// implementations is closed: TextContent and PartsContent.
type Content interface {
	isContent()
}

// TextContent is a flat text body.
type TextContent struct {
	Text string
}

// PartsContent is multi-part structured output, as returned by providers that
// emit content blocks.
type PartsContent struct {
	Parts []Part
}

func (TextContent) isContent()  {}
func (PartsContent) isContent() {}

// Part is one element of PartsContent. Implementations: TextPart, DataPart,
// RawPart.
type Part interface {
	isPart()
}

// TextPart is a structured block exposing a text field.
type TextPart struct {
	Type string
	Text string
}

// DataPart is a structured block without a text field (images, tool calls).
type DataPart struct {
	Type string
}

// RawPart is a bare element that is not a structured block.
type RawPart struct {
	Value string
}

func (TextPart) isPart() {}
func (DataPart) isPart() {}
func (RawPart) isPart()  {}

// Message is a single immutable chat message.
type Message struct {
	Role    Role
	Content Content
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: TextContent{Text: text}}
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: TextContent{Text: text}}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: TextContent{Text: text}}
}

// Conversation is the ordered message sequence assembled for one call.
// It is append-only and never shared between calls.
type Conversation struct {
	messages []Message
}

// NewConversation starts a conversation holding the given messages.
func NewConversation(msgs ...Message) *Conversation {
	c := &Conversation{}
	for _, m := range msgs {
		c.Append(m)
	}
	return c
}

func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// Messages returns a copy of the sequence.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

// UserTurns counts the user messages in the sequence.
func (c *Conversation) UserTurns() int {
	n := 0
	for _, m := range c.messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// lastUserText returns the flattened text of the most recent user message.
func lastUserText(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != RoleUser {
			continue
		}
		text, err := Normalize(msgs[i].Content)
		if err != nil {
			return ""
		}
		return text
	}
	return ""
}
