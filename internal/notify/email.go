// ABOUTME: Email alert dispatcher sending through shoutrrr SMTP URLs.
// ABOUTME: Recipient addresses come from the contact directory, one message per recipient.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/harperreed/glucose/internal/models"
)

// ErrNoContact means a recipient has no email address on file.
var ErrNoContact = errors.New("no email address on file")

// ContactBook resolves recipient IDs to email addresses.
type ContactBook interface {
	ContactEmail(ctx context.Context, id string) (string, bool, error)
}

// Sender delivers one message. *router.ServiceRouter satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// SenderFactory builds a Sender for a set of service URLs.
type SenderFactory func(timeout time.Duration, urls ...string) (Sender, error)

// ShoutrrrSender is the production SenderFactory.
func ShoutrrrSender(timeout time.Duration, urls ...string) (Sender, error) {
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return sender, nil
}

// EmailDispatcher sends alerts as email. baseURL is a shoutrrr smtp:// URL
// without a recipient; the "to" parameter is filled per recipient.
type EmailDispatcher struct {
	baseURL   *url.URL
	from      string
	contacts  ContactBook
	newSender SenderFactory
	timeout   time.Duration
}

func NewEmailDispatcher(smtpURL, from string, contacts ContactBook, timeout time.Duration) (*EmailDispatcher, error) {
	u, err := url.Parse(strings.TrimSpace(smtpURL))
	if err != nil {
		return nil, fmt.Errorf("parse smtp url: %w", err)
	}
	if u.Scheme != "smtp" {
		return nil, fmt.Errorf("smtp url must use the smtp:// scheme, got %q", u.Scheme)
	}
	return &EmailDispatcher{
		baseURL:   u,
		from:      from,
		contacts:  contacts,
		newSender: ShoutrrrSender,
		timeout:   timeout,
	}, nil
}

// WithSenderFactory replaces how senders are built.
func (e *EmailDispatcher) WithSenderFactory(f SenderFactory) *EmailDispatcher {
	e.newSender = f
	return e
}

func (e *EmailDispatcher) Channel() models.Channel { return models.ChannelEmail }

func (e *EmailDispatcher) Dispatch(ctx context.Context, p Payload) []Result {
	results := make([]Result, 0, len(p.Recipients))
	for _, r := range p.Recipients {
		results = append(results, Result{
			RecipientID: r.ID,
			Channel:     models.ChannelEmail,
			Err:         e.send(ctx, r, p),
		})
	}
	return results
}

func (e *EmailDispatcher) send(ctx context.Context, r models.Recipient, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr, ok, err := e.contacts.ContactEmail(ctx, r.ID)
	if err != nil {
		return fmt.Errorf("look up contact: %w", err)
	}
	if !ok || addr == "" {
		return fmt.Errorf("%w: %s", ErrNoContact, r.ID)
	}

	sender, err := e.newSender(e.timeout, e.recipientURL(addr))
	if err != nil {
		return fmt.Errorf("create email sender: %w", err)
	}

	params := stypes.Params{}
	params.SetTitle(p.Subject)
	for _, serr := range sender.Send(emailBody(r, p), &params) {
		if serr != nil {
			return fmt.Errorf("send email: %w", serr)
		}
	}
	return nil
}

func (e *EmailDispatcher) recipientURL(addr string) string {
	u := *e.baseURL
	q := u.Query()
	q.Set("to", addr)
	if e.from != "" {
		q.Set("from", e.from)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func emailBody(r models.Recipient, p Payload) string {
	var b strings.Builder
	if r.Role == models.RoleSpecialist {
		fmt.Fprintf(&b, "Patient %s has %d abnormal glucose readings in the past 7 days.\n\n", p.PatientID, p.AbnormalCount)
	}
	b.WriteString(p.Message)
	fmt.Fprintf(&b, "\n\nWeek of %s. Alert %s.", p.WeekStart, p.AlertID)
	return b.String()
}
