// Package fanout delivers one emergency alert to every contact over every channel the
// contact supports, and reports the per-attempt outcome back to the caller.
package fanout

import (
	"net/mail"
	"strings"
	"time"

	"github.com/charlesng35/sosrelay/pkg/delivery"
)

// Channel identifies a delivery mechanism.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Contact is a person to notify. Phone is required for SMS, Email is optional.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone"`
}

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EvidenceFile references uploaded media attached to an alert.
type EvidenceFile struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Request describes a single fan-out invocation.
type Request struct {
	AlertID       string
	Contacts      []Contact
	EmergencyType string
	Situation     string
	Location      Location
	EvidenceFiles []EvidenceFile
}

// AttemptResult is the outcome of one (contact, channel) attempt.
type AttemptResult struct {
	Contact string        `json:"contact"`
	Channel Channel       `json:"-"`
	Status  bool          `json:"status"`
	Failure delivery.Kind `json:"failure,omitempty"`
}

// Result aggregates every attempt of a fan-out call. Results keep the input contact order.
type Result struct {
	EmailSent    int             `json:"emailSent"`
	EmailFailed  int             `json:"emailFailed"`
	SMSSent      int             `json:"smsSent"`
	SMSFailed    int             `json:"smsFailed"`
	EmailResults []AttemptResult `json:"emailResults"`
	SMSResults   []AttemptResult `json:"smsResults"`
}

// Failed returns the number of failed attempts across both channels.
func (r Result) Failed() int {
	return r.EmailFailed + r.SMSFailed
}

// Record is the audit row written for every successful attempt.
type Record struct {
	AlertID      string
	ContactName  string
	ContactPhone string
	Channel      Channel
	NotifiedAt   time.Time
}

func emptyResult() Result {
	return Result{
		EmailResults: []AttemptResult{},
		SMSResults:   []AttemptResult{},
	}
}

// EmailEligible reports whether the contact carries a single syntactically valid address.
func EmailEligible(c Contact) bool {
	address := strings.TrimSpace(c.Email)
	if address == "" {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return false
	}
	at := strings.LastIndex(parsed.Address, "@")
	return at > 0 && at < len(parsed.Address)-1
}

// SMSEligible reports whether the contact has a phone number.
func SMSEligible(c Contact) bool {
	return strings.TrimSpace(c.Phone) != ""
}

func emailAddress(c Contact) string {
	parsed, err := mail.ParseAddress(strings.TrimSpace(c.Email))
	if err != nil {
		return strings.TrimSpace(c.Email)
	}
	return parsed.Address
}
