// internal/mpesa/types.go
package mpesa

import "encoding/json"

// Request/response shapes follow the Daraja API wire format. Field names
// (and their casing) are the gateway's, not ours.

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type B2CRequest struct {
	InitiatorName      string `json:"InitiatorName"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	Amount             int    `json:"Amount"`
	PartyA             string `json:"PartyA"`
	PartyB             string `json:"PartyB"`
	Remarks            string `json:"Remarks"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	ResultURL          string `json:"ResultURL"`
	Occasion           string `json:"Occasion,omitempty"`
}

type B2CResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// MetadataItem is one {Name, Value} pair from the callback's flat
// CallbackMetadata list. Value is a string or a number depending on Name.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

type STKCallbackData struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// STKCallbackEnvelope is the body Daraja POSTs to the registered callback URL.
type STKCallbackEnvelope struct {
	Body struct {
		StkCallback STKCallbackData `json:"stkCallback"`
	} `json:"Body"`
}

// Amount extracts the Amount metadata item, when present.
func (d *STKCallbackData) Amount() (float64, bool) {
	for _, item := range d.CallbackMetadata.Item {
		if item.Name != "Amount" {
			continue
		}
		switch v := item.Value.(type) {
		case float64:
			return v, true
		case json.Number:
			f, err := v.Float64()
			return f, err == nil
		}
	}
	return 0, false
}

// ReceiptNumber extracts the MpesaReceiptNumber metadata item, when present.
func (d *STKCallbackData) ReceiptNumber() (string, bool) {
	for _, item := range d.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if v, ok := item.Value.(string); ok {
				return v, true
			}
		}
	}
	return "", false
}

type B2CResultData struct {
	ResultType               int    `json:"ResultType"`
	ResultCode               int    `json:"ResultCode"`
	ResultDesc               string `json:"ResultDesc"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ConversationID           string `json:"ConversationID"`
	TransactionID            string `json:"TransactionID"`
	ResultParameters         struct {
		ResultParameter []struct {
			Key   string      `json:"Key"`
			Value interface{} `json:"Value"`
		} `json:"ResultParameter"`
	} `json:"ResultParameters"`
}

// B2CResultEnvelope is the body Daraja POSTs to the B2C result URL.
type B2CResultEnvelope struct {
	Result B2CResultData `json:"Result"`
}

// CallbackAck is the fixed acknowledgement the gateway expects on every
// delivery attempt. Anything else triggers its redelivery storm.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var (
	AckSuccess  = CallbackAck{ResultCode: 0, ResultDesc: "Success"}
	AckRejected = CallbackAck{ResultCode: 1, ResultDesc: "Rejected"}
)
