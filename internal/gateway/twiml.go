package gateway

import "encoding/xml"

// TwiML is the XML document returned to the gateway from webhooks.
type TwiML struct {
	XMLName  xml.Name       `xml:"Response"`
	Messages []TwiMLMessage `xml:"Message,omitempty"`
}

type TwiMLMessage struct {
	Body  string `xml:"Body,omitempty"`
	Media string `xml:"Media,omitempty"`
}

// EmptyTwiML is the acknowledgement with no reply.
func EmptyTwiML() TwiML { return TwiML{} }

// MessageTwiML replies with a single text message.
func MessageTwiML(body string) TwiML {
	return TwiML{Messages: []TwiMLMessage{{Body: body}}}
}

// Render encodes the document with the XML header.
func (t TwiML) Render() []byte {
	out, err := xml.Marshal(t)
	if err != nil {
		return []byte(xml.Header + "<Response></Response>")
	}
	return append([]byte(xml.Header), out...)
}
