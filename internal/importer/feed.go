package importer

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"twotokens/internal/store"
)

var _ CalImporter = (*Feed)(nil)

// Feed downloads an ICS subscription.
type Feed struct {
	rc     *resty.Client
	url    string
	window Window
}

func NewFeed(url, user, pass string, window Window) *Feed {
	rc := resty.New()
	if user != "" || pass != "" {
		rc.SetBasicAuth(user, pass)
	}
	return &Feed{rc: rc, url: url, window: window}
}

func (f *Feed) Get(ctx context.Context) ([]store.EventInput, error) {
	resp, err := f.rc.R().SetContext(ctx).SetDoNotParseResponse(true).Get(f.url)
	if err != nil {
		return nil, errors.Wrap(err, "error getting calendar")
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return nil, errors.New(fmt.Sprintf("error getting calendar: %s", resp.Status()))
	}
	return ParseICS(body, f.window)
}
