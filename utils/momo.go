package utils

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
)

// PaymentGateway is the slice of the momo API the order flow needs.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, orderID, requestID string, amount int64, orderInfo string) (payURL string, err error)
	VerifyCallback(params url.Values) error
}

// MomoClient talks to the momo v2 gateway. Requests and callbacks are both
// authenticated with an HMAC-SHA256 signature over the raw field string.
type MomoClient struct {
	PartnerCode string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	RedirectURL string
	IPNURL      string

	HTTPClient *http.Client
}

func NewMomoClient(partnerCode, accessKey, secretKey, endpoint, redirectURL, ipnURL string) *MomoClient {
	return &MomoClient{
		PartnerCode: partnerCode,
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		Endpoint:    endpoint,
		RedirectURL: redirectURL,
		IPNURL:      ipnURL,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	AccessKey   string `json:"accessKey"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	ExtraData   string `json:"extraData"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
	Lang        string `json:"lang"`
}

type momoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
}

func (m *MomoClient) sign(raw string) string {
	mac := hmac.New(sha256.New, []byte(m.SecretKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePayment registers a captureWallet payment and returns the pay URL
// the student is redirected to.
func (m *MomoClient) CreatePayment(ctx context.Context, orderID, requestID string, amount int64, orderInfo string) (string, error) {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=captureWallet",
		m.AccessKey, amount, m.IPNURL, orderID, orderInfo, m.PartnerCode, m.RedirectURL, requestID,
	)

	body := momoCreateRequest{
		PartnerCode: m.PartnerCode,
		AccessKey:   m.AccessKey,
		RequestID:   requestID,
		Amount:      amount,
		OrderID:     orderID,
		OrderInfo:   orderInfo,
		RedirectURL: m.RedirectURL,
		IPNURL:      m.IPNURL,
		RequestType: "captureWallet",
		Signature:   m.sign(raw),
		Lang:        "en",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("momo request: %w", err)
	}
	defer resp.Body.Close()

	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("momo response: %w", err)
	}
	if out.ResultCode != 0 {
		return "", fmt.Errorf("momo create failed: %s", out.Message)
	}
	return out.PayURL, nil
}

// VerifyCallback recomputes the signature of a redirect/IPN callback and
// rejects any payload that was not signed by momo.
func (m *MomoClient) VerifyCallback(params url.Values) error {
	raw := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%s&resultCode=%s&transId=%s",
		m.AccessKey,
		params.Get("amount"),
		params.Get("extraData"),
		params.Get("message"),
		params.Get("orderId"),
		params.Get("orderInfo"),
		params.Get("orderType"),
		params.Get("partnerCode"),
		params.Get("payType"),
		params.Get("requestId"),
		params.Get("responseTime"),
		params.Get("resultCode"),
		params.Get("transId"),
	)
	expected := m.sign(raw)
	if !hmac.Equal([]byte(expected), []byte(params.Get("signature"))) {
		return errs.Unauthenticated("invalid payment signature")
	}
	return nil
}
