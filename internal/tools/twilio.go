package tools

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioCommunicator reaches people over SMS and voice.
type TwilioCommunicator struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioCommunicator(accountSID, authToken, fromNumber string) *TwilioCommunicator {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioCommunicator{client: client, from: fromNumber}
}

func (t *TwilioCommunicator) SendSMS(ctx context.Context, recipient, message string) (string, error) {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(t.from)
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("sending SMS: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("sending SMS: no message sid returned")
	}
	return *resp.Sid, nil
}

func (t *TwilioCommunicator) Call(ctx context.Context, recipient, message string) (string, error) {
	params := &twilioapi.CreateCallParams{}
	params.SetTo(recipient)
	params.SetFrom(t.from)
	params.SetTwiml(sayTwiML(message))

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("placing call: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("placing call: no call sid returned")
	}
	return *resp.Sid, nil
}

// sayTwiML wraps message in a minimal voice document. The text is escaped so
// characters like & or < cannot break the XML.
func sayTwiML(message string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(message))
	return "<Response><Say>" + buf.String() + "</Say></Response>"
}
