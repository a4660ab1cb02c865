// Package whatsapp composes outbound wa.me links. Link composition is pure
// string work; opening the link is the caller's capability, never this
// service's.
package whatsapp

import (
	"fmt"
	"net/url"

	"contacts_backend/internal/contacts/domain"
	"contacts_backend/platform/config"
	"contacts_backend/platform/phone"
)

const baseURL = "https://wa.me/"

// Composer builds per-contact outreach links with a greeting prefilled.
type Composer struct {
	defaultRegion string
}

func NewComposer(cfg config.OutreachConfig) *Composer {
	return &Composer{defaultRegion: cfg.GetDefaultPhoneRegion()}
}

// Greeting returns the prefilled message for one contact, signed by the
// consultant assigned to it.
func (c *Composer) Greeting(contact domain.Contact) string {
	return fmt.Sprintf("Hello %s! This is %s. Can we talk?", contact.Name, contact.Consultant)
}

// Link returns the wa.me URL for the contact: digits-only phone in the
// path, greeting percent-encoded in the text query parameter.
func (c *Composer) Link(contact domain.Contact) string {
	digits := phone.Digits(phone.NormalizeE164(contact.Phone, c.defaultRegion))
	return baseURL + digits + "?text=" + url.QueryEscape(c.Greeting(contact))
}
