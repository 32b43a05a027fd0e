package conversation

import "strings"

// Normalize flattens provider content into a single string. Flat text is
// returned unchanged; parts are joined with single spaces, each contributing
// its text field (TextPart), nothing (DataPart) or its raw value (RawPart).
func Normalize(c Content) (string, error) {
	switch v := c.(type) {
	case TextContent:
		return v.Text, nil
	case PartsContent:
		texts := make([]string, 0, len(v.Parts))
		for _, p := range v.Parts {
			text, err := partText(p)
			if err != nil {
				return "", err
			}
			texts = append(texts, text)
		}
		return strings.Join(texts, " "), nil
	default:
		return "", ErrUnrecognizedContent
	}
}

func partText(p Part) (string, error) {
	switch v := p.(type) {
	case TextPart:
		return v.Text, nil
	case DataPart:
		return "", nil
	case RawPart:
		return v.Value, nil
	default:
		return "", ErrUnrecognizedContent
	}
}
