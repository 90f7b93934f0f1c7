package inbound

import (
	"strings"

	"github.com/chatline/chatline/internal/conversation"
	"github.com/chatline/chatline/internal/gateway"
)

var campaignMarkers = []string{"utm_source=ultim", "utm_medium=meta"}

// DetectOrigin tags a first contact as campaign when it came from a
// click-to-chat ad or carries the campaign UTM parameters.
func DetectOrigin(msg gateway.InboundMessage) string {
	if strings.EqualFold(strings.TrimSpace(msg.ReferralSourceType), "ad") {
		return conversation.OriginCampaign
	}
	for _, field := range []string{msg.ReferralSourceURL, msg.Body, msg.ReferralHeadline} {
		for _, marker := range campaignMarkers {
			if strings.Contains(field, marker) {
				return conversation.OriginCampaign
			}
		}
	}
	return conversation.OriginOrganic
}
