package gateway

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// InboundMessage is the form posted to the receive webhook.
type InboundMessage struct {
	From               string
	To                 string
	Body               string
	MessageSID         string
	SmsMessageSID      string
	NumMedia           int
	MediaURL           string
	MediaContentType   string
	MediaFileName      string
	ProfileName        string
	ReferralSourceURL  string
	ReferralSourceType string
	ReferralHeadline   string
}

// SID returns MessageSid, falling back to SmsMessageSid.
func (m InboundMessage) SID() string {
	if m.MessageSID != "" {
		return m.MessageSID
	}
	return m.SmsMessageSID
}

// ParseInbound decodes the receive webhook form.
func ParseInbound(form url.Values) InboundMessage {
	n, _ := strconv.Atoi(strings.TrimSpace(form.Get("NumMedia")))
	return InboundMessage{
		From:               form.Get("From"),
		To:                 form.Get("To"),
		Body:               form.Get("Body"),
		MessageSID:         form.Get("MessageSid"),
		SmsMessageSID:      form.Get("SmsMessageSid"),
		NumMedia:           n,
		MediaURL:           form.Get("MediaUrl0"),
		MediaContentType:   form.Get("MediaContentType0"),
		MediaFileName:      form.Get("MediaFileName0"),
		ProfileName:        form.Get("ProfileName"),
		ReferralSourceURL:  form.Get("ReferralSourceUrl"),
		ReferralSourceType: form.Get("ReferralSourceType"),
		ReferralHeadline:   form.Get("ReferralHeadline"),
	}
}

// StatusCallback is the form posted to the status webhook.
type StatusCallback struct {
	MessageSID   string
	Status       string
	ErrorCode    string
	ErrorMessage string
	From         string
	To           string
	// Raw is the whole form as JSON, kept for the audit trail.
	Raw json.RawMessage
}

// ParseStatus decodes the status webhook form.
func ParseStatus(form url.Values) StatusCallback {
	flat := make(map[string]string, len(form))
	for k, vs := range form {
		if len(vs) > 0 {
			flat[k] = vs[0]
		}
	}
	raw, _ := json.Marshal(flat)
	sid := form.Get("MessageSid")
	if sid == "" {
		sid = form.Get("SmsSid")
	}
	status := form.Get("MessageStatus")
	if status == "" {
		status = form.Get("SmsStatus")
	}
	return StatusCallback{
		MessageSID:   sid,
		Status:       strings.ToLower(strings.TrimSpace(status)),
		ErrorCode:    form.Get("ErrorCode"),
		ErrorMessage: form.Get("ErrorMessage"),
		From:         form.Get("From"),
		To:           form.Get("To"),
		Raw:          raw,
	}
}
