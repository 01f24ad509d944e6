package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fanclash-service/internal/config"
	xerrors "fanclash-service/internal/pkg/errors"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"100", 100, false},
		{"99.50", 99.5, false},
		{" 10 ", 10, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"10,50", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, xerrors.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

type gatewayStub struct {
	tokenCalls   atomic.Int64
	stkCalls     atomic.Int64
	b2cCalls     atomic.Int64
	lastSTKBody  STKPushRequest
	lastB2CBody  B2CRequest
	tokenStatus  int
	stkResponse  STKPushResponse
	b2cResponse  B2CResponse
	server       *httptest.Server
}

func newGatewayStub(t *testing.T) *gatewayStub {
	t.Helper()

	stub := &gatewayStub{
		tokenStatus: http.StatusOK,
		stkResponse: STKPushResponse{
			MerchantRequestID:   "29115-34620561-1",
			CheckoutRequestID:   "ws_CO_191220191020363925",
			ResponseCode:        "0",
			ResponseDescription: "Success. Request accepted for processing",
			CustomerMessage:     "Success. Request accepted for processing",
		},
		b2cResponse: B2CResponse{
			ConversationID:           "AG_20191219_00005797af5d7d75f652",
			OriginatorConversationID: "16740-34861180-1",
			ResponseCode:             "0",
			ResponseDescription:      "Accept the service request successfully.",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		stub.tokenCalls.Add(1)
		if stub.tokenStatus != http.StatusOK {
			w.WriteHeader(stub.tokenStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "test-token",
			"expires_in":   "3599",
		})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		stub.stkCalls.Add(1)
		json.NewDecoder(r.Body).Decode(&stub.lastSTKBody)
		json.NewEncoder(w).Encode(stub.stkResponse)
	})
	mux.HandleFunc("/mpesa/b2c/v1/paymentrequest", func(w http.ResponseWriter, r *http.Request) {
		stub.b2cCalls.Add(1)
		json.NewDecoder(r.Body).Decode(&stub.lastB2CBody)
		json.NewEncoder(w).Encode(stub.b2cResponse)
	})

	stub.server = httptest.NewServer(mux)
	t.Cleanup(stub.server.Close)
	return stub
}

func newTestClient(t *testing.T, stub *gatewayStub) *Client {
	t.Helper()
	cfg := config.MpesaConfig{
		Environment:        "sandbox",
		BaseURL:            stub.server.URL,
		ConsumerKey:        "key",
		ConsumerSecret:     "secret",
		ShortCode:          "174379",
		Passkey:            "passkey",
		InitiatorName:      "testapi",
		SecurityCredential: "credential",
		B2CShortCode:       "600999",
		CallbackBaseURL:    "https://api.fanclash.app/api/v1/payments",
		CallbackSecret:     "cb-secret",
	}
	return NewClient(cfg, NewTokenCache(), zap.NewNop())
}

func TestGetAccessToken(t *testing.T) {
	t.Run("back to back calls reuse the cached token", func(t *testing.T) {
		stub := newGatewayStub(t)
		client := newTestClient(t, stub)

		first, err := client.GetAccessToken(context.Background())
		require.NoError(t, err)
		second, err := client.GetAccessToken(context.Background())
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.EqualValues(t, 1, stub.tokenCalls.Load())
	})

	t.Run("token inside the safety margin is refreshed once", func(t *testing.T) {
		stub := newGatewayStub(t)
		client := newTestClient(t, stub)

		client.tokens.Put("stale-token", time.Now().Add(2*time.Minute))

		got, err := client.GetAccessToken(context.Background())
		require.NoError(t, err)
		require.Equal(t, "test-token", got)
		require.EqualValues(t, 1, stub.tokenCalls.Load())
	})

	t.Run("non-2xx surfaces as gateway error", func(t *testing.T) {
		stub := newGatewayStub(t)
		stub.tokenStatus = http.StatusUnauthorized
		client := newTestClient(t, stub)

		_, err := client.GetAccessToken(context.Background())
		require.ErrorIs(t, err, xerrors.ErrGateway)
	})
}

func TestInitiateSTKPush(t *testing.T) {
	t.Run("normalizes phone and builds the daraja request", func(t *testing.T) {
		stub := newGatewayStub(t)
		client := newTestClient(t, stub)

		resp, err := client.InitiateSTKPush(context.Background(), "0712345678", "100", "", "")
		require.NoError(t, err)

		require.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)
		require.Equal(t, "29115-34620561-1", resp.MerchantRequestID)

		body := stub.lastSTKBody
		require.Equal(t, "254712345678", body.PartyA)
		require.Equal(t, "254712345678", body.PhoneNumber)
		require.Equal(t, "174379", body.BusinessShortCode)
		require.Equal(t, "174379", body.PartyB)
		require.Equal(t, 100, body.Amount)
		require.Equal(t, "CustomerPayBillOnline", body.TransactionType)
		require.Equal(t, "FanClash", body.AccountReference)
		require.Equal(t, "Payment for services", body.TransactionDesc)
		require.Equal(t, "https://api.fanclash.app/api/v1/payments/callback/cb-secret", body.CallBackURL)

		// Password is base64(shortcode + passkey + timestamp)
		require.Len(t, body.Timestamp, 14)
		wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey" + body.Timestamp))
		require.Equal(t, wantPassword, body.Password)
	})

	t.Run("bad amount fails before any network call", func(t *testing.T) {
		stub := newGatewayStub(t)
		client := newTestClient(t, stub)

		for _, amount := range []string{"0", "-10", "ten"} {
			_, err := client.InitiateSTKPush(context.Background(), "0712345678", amount, "", "")
			require.ErrorIs(t, err, xerrors.ErrInvalidAmount)
		}

		require.EqualValues(t, 0, stub.tokenCalls.Load())
		require.EqualValues(t, 0, stub.stkCalls.Load())
	})

	t.Run("custom reference and description are forwarded", func(t *testing.T) {
		stub := newGatewayStub(t)
		client := newTestClient(t, stub)

		_, err := client.InitiateSTKPush(context.Background(), "254712345678", "250", "BET-123", "Bet pledge")
		require.NoError(t, err)

		require.Equal(t, "BET-123", stub.lastSTKBody.AccountReference)
		require.Equal(t, "Bet pledge", stub.lastSTKBody.TransactionDesc)
	})
}

func TestSendB2CPayment(t *testing.T) {
	t.Run("party identifiers are reversed from stk push", func(t *testing.T) {
		stub := newGatewayStub(t)
		client := newTestClient(t, stub)

		resp, err := client.SendB2CPayment(context.Background(), "0712345678", "500", "BusinessPayment", "Winnings payout", "")
		require.NoError(t, err)

		require.Equal(t, "AG_20191219_00005797af5d7d75f652", resp.ConversationID)

		body := stub.lastB2CBody
		require.Equal(t, "600999", body.PartyA)
		require.Equal(t, "254712345678", body.PartyB)
		require.Equal(t, "BusinessPayment", body.CommandID)
		require.Equal(t, 500, body.Amount)
		require.Equal(t, "testapi", body.InitiatorName)
		require.Equal(t, "https://api.fanclash.app/api/v1/payments/b2c/result/cb-secret", body.ResultURL)
		require.Equal(t, "https://api.fanclash.app/api/v1/payments/b2c/timeout/cb-secret", body.QueueTimeOutURL)
	})

	t.Run("bad amount fails before any network call", func(t *testing.T) {
		stub := newGatewayStub(t)
		client := newTestClient(t, stub)

		_, err := client.SendB2CPayment(context.Background(), "0712345678", "nope", "BusinessPayment", "r", "")
		require.ErrorIs(t, err, xerrors.ErrInvalidAmount)
		require.EqualValues(t, 0, stub.b2cCalls.Load())
	})
}

func TestSTKCallbackMetadata(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 100.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	var envelope STKCallbackEnvelope
	require.NoError(t, json.Unmarshal(payload, &envelope))

	cb := envelope.Body.StkCallback
	require.Equal(t, 0, cb.ResultCode)

	amount, ok := cb.Amount()
	require.True(t, ok)
	require.Equal(t, 100.0, amount)

	receipt, ok := cb.ReceiptNumber()
	require.True(t, ok)
	require.Equal(t, "NLJ7RT61SV", receipt)
}

func TestSTKCallbackMetadataAbsent(t *testing.T) {
	var cb STKCallbackData
	_, ok := cb.Amount()
	require.False(t, ok)
	_, ok = cb.ReceiptNumber()
	require.False(t, ok)
}
