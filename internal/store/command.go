package store

import (
	"strings"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
)

type Placeholder string

const (
	PlaceholderEventName Placeholder = "event_name"
	PlaceholderEventID   Placeholder = "event_id"
	PlaceholderSponsor   Placeholder = "sponsor"
	PlaceholderDirector  Placeholder = "director"
	PlaceholderTopic     Placeholder = "topic"
)

var knownPlaceholders = map[Placeholder]struct{}{
	PlaceholderEventName: {},
	PlaceholderEventID:   {},
	PlaceholderSponsor:   {},
	PlaceholderDirector:  {},
	PlaceholderTopic:     {},
}

type commandPart struct {
	literal     string
	placeholder Placeholder
}

// CommandTemplate is a parsed command with {name} placeholders.
// "{{" and "}}" stand for literal braces. Placeholders must stand outside
// shell quotes since Expand quotes each value itself; a placeholder written
// as "{name}" is accepted and loses its double quotes.
type CommandTemplate struct {
	raw   string
	parts []commandPart
}

type quoteState int

const (
	unquoted quoteState = iota
	singleQuoted
	doubleQuoted
)

func ParseCommand(raw string) (CommandTemplate, error) {
	tpl := CommandTemplate{raw: raw}
	var (
		lit      strings.Builder
		quote    = unquoted
		openedAt int
	)
	flush := func() {
		if lit.Len() > 0 {
			tpl.parts = append(tpl.parts, commandPart{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return CommandTemplate{}, errors.Wrapf(ErrValidation, "unclosed placeholder in %q", raw)
			}
			name := Placeholder(raw[i+1 : i+1+end])
			if _, ok := knownPlaceholders[name]; !ok {
				return CommandTemplate{}, errors.Wrapf(ErrValidation, "unknown placeholder {%s} in %q", name, raw)
			}
			next := i + end + 2
			switch {
			case quote == unquoted:
			case quote == doubleQuoted && openedAt == i-1 && next < len(raw) && raw[next] == '"':
				// "{name}": drop the quotes around the placeholder
				trimmed := strings.TrimSuffix(lit.String(), `"`)
				lit.Reset()
				lit.WriteString(trimmed)
				quote = unquoted
				i = next
				flush()
				tpl.parts = append(tpl.parts, commandPart{placeholder: name})
				continue
			default:
				return CommandTemplate{}, errors.Wrapf(ErrValidation, "placeholder {%s} inside quotes in %q", name, raw)
			}
			flush()
			tpl.parts = append(tpl.parts, commandPart{placeholder: name})
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return CommandTemplate{}, errors.Wrapf(ErrValidation, "single '}' in %q", raw)
		case '\\':
			lit.WriteByte(c)
			if quote != singleQuoted && i+1 < len(raw) {
				i++
				lit.WriteByte(raw[i])
			}
		case '\'':
			lit.WriteByte(c)
			switch quote {
			case unquoted:
				quote = singleQuoted
			case singleQuoted:
				quote = unquoted
			}
		case '"':
			lit.WriteByte(c)
			switch quote {
			case unquoted:
				quote = doubleQuoted
				openedAt = i
			case doubleQuoted:
				quote = unquoted
			}
		default:
			lit.WriteByte(c)
		}
	}
	if quote != unquoted {
		return CommandTemplate{}, errors.Wrapf(ErrValidation, "unterminated quote in %q", raw)
	}
	flush()
	return tpl, nil
}

// Expand substitutes shell-quoted placeholder values, so a value always
// reaches the command as one word. Missing values become ''.
func (c CommandTemplate) Expand(values map[Placeholder]string) string {
	var sb strings.Builder
	for _, p := range c.parts {
		if p.placeholder != "" {
			sb.WriteString(shellescape.Quote(values[p.placeholder]))
			continue
		}
		sb.WriteString(p.literal)
	}
	return sb.String()
}

func (c CommandTemplate) String() string {
	return c.raw
}
