package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioNotifier delivers SMS through the Twilio messages API.
type TwilioNotifier struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

func NewTwilioNotifier(accountSID, authToken, from string) *TwilioNotifier {
	return &TwilioNotifier{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *TwilioNotifier) Send(ctx context.Context, phoneNumber, text string) error {
	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("From", n.from)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioAPIBase, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(n.accountSID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio: unexpected status %d", resp.StatusCode)
	}
	return nil
}
