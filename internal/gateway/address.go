package gateway

import "strings"

const channelPrefix = "whatsapp:"

// StripChannel removes the "whatsapp:" prefix, leaving the bare E.164 number.
func StripChannel(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) >= len(channelPrefix) && strings.EqualFold(addr[:len(channelPrefix)], channelPrefix) {
		return strings.TrimSpace(addr[len(channelPrefix):])
	}
	return addr
}

// WithChannel adds the "whatsapp:" prefix when missing.
func WithChannel(addr string) string {
	addr = StripChannel(addr)
	if addr == "" {
		return ""
	}
	return channelPrefix + addr
}
