package importer

import (
	"context"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"twotokens/internal/store"
)

const occurrenceSuffixFormat = "20060102"

// CalImporter turns an external calendar into event inputs.
type CalImporter interface {
	Get(ctx context.Context) ([]store.EventInput, error)
}

// Window bounds recurrence expansion.
type Window struct {
	From time.Time
	To   time.Time
}

func NewWindow(now time.Time, days int) Window {
	return Window{From: now, To: now.AddDate(0, 0, days)}
}

// occurrences names every instance "{name}_{YYYYMMDD}" so derived task
// names stay unique, even when only one start is given. Non-recurring
// events go through single and keep the plain name.
func occurrences(base store.EventInput, starts []time.Time) []store.EventInput {
	out := make([]store.EventInput, 0, len(starts))
	for _, st := range starts {
		in := base
		in.Team = append([]string(nil), base.Team...)
		in.Date = st.In(time.Local).Format(store.DateLayout)
		in.Name = base.Name + "_" + st.In(time.Local).Format(occurrenceSuffixFormat)
		out = append(out, in)
	}
	return out
}

func single(base store.EventInput, start time.Time) store.EventInput {
	base.Date = start.In(time.Local).Format(store.DateLayout)
	return base
}

func ValueOrEmpty(prop *ics.IANAProperty) string {
	if prop == nil {
		return ""
	}
	return prop.Value
}

func JoinProperties(props []ics.IANAProperty, propName ics.ComponentProperty) string {
	sb := strings.Builder{}
	for _, prop := range props {
		if prop.IANAToken == string(propName) {
			_, _ = sb.WriteString(prop.Value)
			_, _ = sb.WriteRune(',')
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return sb.String()[:sb.Len()-1]
}

// people strips mailto: from calendar addresses.
func people(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if len(p) >= 7 && strings.EqualFold(p[:7], "mailto:") {
				p = p[7:]
			}
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
