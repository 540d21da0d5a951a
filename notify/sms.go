package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ticketing-backend/logger"
)

// SMS texts the buyer through the Twilio messages API.
type SMS struct {
	accountSID string
	authToken  string
	url        string
	from       string
	httpClient *http.Client
}

func NewSMS(accountSID, authToken, baseURL, from string) *SMS {
	return &SMS{
		accountSID: accountSID,
		authToken:  authToken,
		url:        fmt.Sprintf("%s/%s/Messages.json", strings.TrimSuffix(baseURL, "/"), accountSID),
		from:       from,
		httpClient: &http.Client{Timeout: sendTimeout},
	}
}

func (s *SMS) PurchaseConfirmed(ctx context.Context, conf Confirmation) error {
	if conf.Phone == "" {
		logger.Debugf(ctx, "purchaseConfirmed: user %d has no phone, skipping sms for purchase %d", conf.UserID, conf.PurchaseID)
		return nil
	}

	msg := fmt.Sprintf("Purchase #%d confirmed: %d x %s for %s, total %.2f",
		conf.PurchaseID, conf.Quantity, conf.TicketType, conf.EventTitle, conf.TotalPrice)

	sid, err := s.send(ctx, conf.Phone, msg)
	if err != nil {
		return fmt.Errorf("purchaseConfirmed: error sending sms for purchase %d: %w", conf.PurchaseID, err)
	}

	logger.Infof(ctx, "purchaseConfirmed: sms %s sent for purchase %d", sid, conf.PurchaseID)
	return nil
}

func (s *SMS) send(ctx context.Context, to, message string) (string, error) {
	v := url.Values{}
	v.Set("To", to)
	v.Set("From", s.from)
	v.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(v.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("send: error reading response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("send: status code %d: %s", res.StatusCode, body)
	}

	var data struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("send: error unmarshalling response body: %w", err)
	}
	return data.SID, nil
}

