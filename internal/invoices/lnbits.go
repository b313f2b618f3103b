package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	chaterrors "github.com/lnbits/chat/pkg/errors"
)

// LnbitsProvider talks to an LNbits instance's payments API.
type LnbitsProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewLnbitsProvider(baseURL, apiKey string) *LnbitsProvider {
	return &LnbitsProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *LnbitsProvider) CreateInvoice(ctx context.Context, req CreateRequest) (Invoice, error) {
	payload := map[string]any{
		"out":    false,
		"amount": req.Amount,
		"memo":   req.Memo,
		"extra":  req.Extra,
	}
	var out struct {
		PaymentHash    string `json:"payment_hash"`
		PaymentRequest string `json:"payment_request"`
		Bolt11         string `json:"bolt11"`
	}
	if err := p.do(ctx, http.MethodPost, "/api/v1/payments", req.Wallet, payload, &out); err != nil {
		return Invoice{}, err
	}
	bolt11 := out.Bolt11
	if bolt11 == "" {
		bolt11 = out.PaymentRequest
	}
	return Invoice{PaymentHash: out.PaymentHash, Bolt11: bolt11}, nil
}

// CheckPayment looks the invoice up at the LNbits instance. The reported
// amount is in millisats.
func (p *LnbitsProvider) CheckPayment(ctx context.Context, paymentHash string) (PaymentStatus, error) {
	var out struct {
		Paid    bool `json:"paid"`
		Details struct {
			Amount int64 `json:"amount"`
		} `json:"details"`
	}
	if err := p.do(ctx, http.MethodGet, "/api/v1/payments/"+paymentHash, "", nil, &out); err != nil {
		return PaymentStatus{}, err
	}
	return PaymentStatus{Paid: out.Paid, Amount: out.Details.Amount / 1000}, nil
}

func (p *LnbitsProvider) SplitPayment(ctx context.Context, fromWallet, toUserID string, amount int64, memo string) error {
	payload := map[string]any{
		"to_user": toUserID,
		"amount":  amount,
		"memo":    memo,
	}
	return p.do(ctx, http.MethodPost, "/api/v1/payments/internal", fromWallet, payload, nil)
}

// FiatAsSats implements RateConverter via LNbits' conversion endpoint.
func (p *LnbitsProvider) FiatAsSats(ctx context.Context, amount float64, currency string) (int64, error) {
	payload := map[string]any{
		"amount": amount,
		"from":   currency,
		"to":     "sat",
	}
	var out struct {
		Sats float64 `json:"sats"`
	}
	if err := p.do(ctx, http.MethodPost, "/api/v1/conversion", "", payload, &out); err != nil {
		return 0, err
	}
	return int64(math.Ceil(out.Sats)), nil
}

func (p *LnbitsProvider) do(ctx context.Context, method, path, wallet string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", chaterrors.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	key := p.apiKey
	if wallet != "" {
		key = wallet
	}
	req.Header.Set("X-Api-Key", key)

	res, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", chaterrors.ErrTransport, method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: %s", chaterrors.ErrTransport, method, path, res.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
