package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/bioscout/bioscout/internal/errors"
)

// ShoutrrrProvider sends events through nicholas-fedor/shoutrrr using a
// single router for all configured URLs.
type ShoutrrrProvider struct {
	name   string
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrProvider builds the router for urls. Invalid URLs are reported
// with their credentials removed.
func NewShoutrrrProvider(name string, urls []string, timeout time.Duration) (*ShoutrrrProvider, error) {
	sp := &ShoutrrrProvider{name: strings.TrimSpace(name), urls: slices.Clone(urls)}
	if sp.name == "" {
		sp.name = "shoutrrr"
	}
	if len(sp.urls) == 0 {
		return nil, errors.Newf("at least one shoutrrr URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(sp.urls...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("invalid shoutrrr URL: %s", errors.ScrubMessage(err.Error()))).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	sp.sender = sender
	return sp, nil
}

// Name implements Provider.
func (s *ShoutrrrProvider) Name() string { return s.name }

// Publish implements Provider. The router applies its own timeout.
func (s *ShoutrrrProvider) Publish(_ context.Context, event Event) error {
	params := stypes.Params{}
	params.SetTitle(event.Title())

	for _, err := range s.sender.Send(event.Message(), &params) {
		if err != nil {
			return errors.New(fmt.Errorf("shoutrrr send: %s", errors.ScrubMessage(err.Error()))).
				Component("notification").
				Category(errors.CategoryIntegration).
				Build()
		}
	}
	return nil
}
