package media

import (
	"regexp"
	"strings"
)

var (
	vcardName  = regexp.MustCompile(`(?i)FN[;:](.+)`)
	vcardPhone = regexp.MustCompile(`(?i)TEL[^:]*:(.+)`)
	vcardEmail = regexp.MustCompile(`(?i)EMAIL[^:]*:(.+)`)
	vcardOrg   = regexp.MustCompile(`(?i)ORG[;:](.+)`)
)

// Contact holds the fields pulled out of a shared contact card.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Org   string `json:"org,omitempty"`
}

// ParseVCard extracts the first FN, TEL, EMAIL and ORG values. Name defaults
// to "Contacto".
func ParseVCard(raw string) Contact {
	c := Contact{Name: "Contacto"}
	if v := firstGroup(vcardName, raw); v != "" {
		c.Name = v
	}
	c.Phone = firstGroup(vcardPhone, raw)
	c.Email = firstGroup(vcardEmail, raw)
	c.Org = firstGroup(vcardOrg, raw)
	return c
}

// Summary renders the contact as the message text stored for it.
func (c Contact) Summary() string {
	var b strings.Builder
	b.WriteString("Contacto compartido: ")
	b.WriteString(c.Name)
	if c.Phone != "" {
		b.WriteString(" - Tel: ")
		b.WriteString(c.Phone)
	}
	if c.Email != "" {
		b.WriteString(" - Email: ")
		b.WriteString(c.Email)
	}
	if c.Org != "" {
		b.WriteString(" - ")
		b.WriteString(c.Org)
	}
	return b.String()
}

func firstGroup(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
