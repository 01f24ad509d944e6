// internal/mpesa/client.go
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fanclash-service/internal/config"
	xerrors "fanclash-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	// Tokens are cached for a fixed hour and refreshed once less than the
	// safety margin remains, regardless of the expires_in the gateway
	// reports.
	tokenTTL          = time.Hour
	tokenSafetyMargin = 5 * time.Minute

	defaultAccountReference = "FanClash"
	defaultTransactionDesc  = "Payment for services"
)

// ValidCommandIDs are the B2C command identifiers Daraja accepts.
var ValidCommandIDs = map[string]bool{
	"BusinessPayment":  true,
	"SalaryPayment":    true,
	"PromotionPayment": true,
}

// Client talks to the Daraja API: OAuth token management, STK push
// (customer-to-business) and B2C (business-to-customer) payments.
type Client struct {
	cfg        config.MpesaConfig
	baseURL    string
	httpClient *http.Client
	tokens     *TokenCache
	logger     *zap.Logger
}

// NewClient builds a gateway client. The token cache is injected so it can
// be shared; it is the only mutable state the client carries.
func NewClient(cfg config.MpesaConfig, tokens *TokenCache, logger *zap.Logger) *Client {
	baseURL := sandboxBaseURL
	if cfg.Environment == "production" {
		baseURL = productionBaseURL
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// BaseURL reports the gateway base URL in use (sandbox or production).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ParseAmount validates that raw is a positive decimal amount.
func ParseAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", xerrors.ErrInvalidAmount, raw)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %q", xerrors.ErrInvalidAmount, raw)
	}
	return amount, nil
}

// GetAccessToken returns a bearer token, reusing the cached one while more
// than the safety margin remains before expiry. Failures are not retried
// here; retry policy belongs to the caller.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(tokenSafetyMargin); ok {
		return token, nil
	}

	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request failed: %v", xerrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token request returned %d: %s", xerrors.ErrGateway, resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %v", xerrors.ErrGateway, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token in response", xerrors.ErrGateway)
	}

	c.tokens.Put(tok.AccessToken, time.Now().Add(tokenTTL))
	c.logger.Debug("fetched fresh access token", zap.String("expires_in", tok.ExpiresIn))

	return tok.AccessToken, nil
}

// InitiateSTKPush asks the gateway to prompt the payer's phone for a
// CustomerPayBillOnline payment. The amount is validated and the phone
// normalized before any network call.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber, amount, accountReference, transactionDesc string) (*STKPushResponse, error) {
	parsed, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	if accountReference == "" {
		accountReference = defaultAccountReference
	}
	if transactionDesc == "" {
		transactionDesc = defaultTransactionDesc
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	phone := FormatPhoneNumber(phoneNumber)
	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp),
	)

	request := STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(parsed),
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL("callback"),
		AccountReference:  accountReference,
		TransactionDesc:   transactionDesc,
	}

	var response STKPushResponse
	if err := c.postJSON(ctx, "/mpesa/stkpush/v1/processrequest", token, request, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// SendB2CPayment pays out to a customer. Party identifiers are reversed
// from STK push: the business shortcode is the source, the customer the
// destination. The command id must be validated by the caller.
func (c *Client) SendB2CPayment(ctx context.Context, phoneNumber, amount, commandID, remarks, occasion string) (*B2CResponse, error) {
	parsed, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	request := B2CRequest{
		InitiatorName:      c.cfg.InitiatorName,
		SecurityCredential: c.cfg.SecurityCredential,
		CommandID:          commandID,
		Amount:             int(parsed),
		PartyA:             c.cfg.B2CShortCode,
		PartyB:             FormatPhoneNumber(phoneNumber),
		Remarks:            remarks,
		QueueTimeOutURL:    c.callbackURL("b2c/timeout"),
		ResultURL:          c.callbackURL("b2c/result"),
		Occasion:           occasion,
	}

	var response B2CResponse
	if err := c.postJSON(ctx, "/mpesa/b2c/v1/paymentrequest", token, request, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

func (c *Client) callbackURL(path string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.cfg.CallbackBaseURL, "/"), path, c.cfg.CallbackSecret)
}

func (c *Client) postJSON(ctx context.Context, path, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request to %s failed: %v", xerrors.ErrGateway, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s returned %d: %s", xerrors.ErrGateway, path, resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response from %s: %v", xerrors.ErrGateway, path, err)
	}

	return nil
}
