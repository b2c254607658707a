package domain

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Audience string

const (
	AudienceSponsor Audience = "sponsor"
	AudienceTeam    Audience = "team"
	AudienceAll     Audience = "all"
)

// Notifier prints notifications instead of delivering them.
type Notifier struct {
	Out io.Writer
}

func (n Notifier) Notify(audience Audience, eventName string) error {
	var line string
	switch audience {
	case AudienceSponsor:
		line = "📧 Sponsor notification sent for event: " + eventName
	case AudienceTeam:
		line = "👥 Team notification sent for event: " + eventName
	case AudienceAll:
		line = "📢 All stakeholders notified for event: " + eventName
	default:
		return errors.Errorf("unknown audience %q, want one of %s", audience,
			strings.Join([]string{string(AudienceSponsor), string(AudienceTeam), string(AudienceAll)}, ", "))
	}
	log.Info().Str("audience", string(audience)).Str("eventName", eventName).Msg("notification stub")
	_, err := fmt.Fprintln(n.Out, line)
	return err
}
