package payfast

import (
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	sandboxProcessURL    = "https://sandbox.payfast.co.za/eng/process"
	productionProcessURL = "https://www.payfast.co.za/eng/process"

	// StatusComplete is the gateway's success payment status.
	StatusComplete = "COMPLETE"
)

var (
	// ErrInvalidSignature is returned when a callback's signature does not
	// match the recomputed one. The callback must be rejected with no
	// state change.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMissingSignature is returned when a callback carries no signature
	// field at all.
	ErrMissingSignature = errors.New("missing signature")
)

// Config holds the merchant identity and callback URLs for the gateway.
type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
	Sandbox     bool
}

// PaymentRequest is the order data needed to build an outbound payment.
type PaymentRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	FirstName   string
	LastName    string
	Email       string
	ItemName    string
	Description string
}

// Payment is a signed outbound parameter set ready for a form auto-submit to
// the gateway's hosted page.
type Payment struct {
	Params    *Values
	Signature string
}

// Notification is a verified inbound gateway callback.
type Notification struct {
	PaymentStatus    string
	OrderID          string
	GatewayPaymentID string
	Amount           decimal.Decimal
}

// Client builds signed outbound payments and verifies inbound callbacks.
type Client struct {
	cfg Config
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// BuildPayment assembles the outbound parameter set in the gateway's exact
// field order and signs it. The amount is formatted to exactly two decimal
// places.
func (c *Client) BuildPayment(req PaymentRequest) *Payment {
	v := &Values{}
	v.Set("merchant_id", c.cfg.MerchantID)
	v.Set("merchant_key", c.cfg.MerchantKey)
	v.Set("return_url", c.cfg.ReturnURL)
	v.Set("cancel_url", c.cfg.CancelURL)
	v.Set("notify_url", c.cfg.NotifyURL)
	v.Set("name_first", req.FirstName)
	v.Set("name_last", req.LastName)
	v.Set("email_address", req.Email)
	v.Set("m_payment_id", req.OrderID)
	v.Set("amount", req.Amount.StringFixed(2))
	v.Set("item_name", req.ItemName)
	v.Set("item_description", req.Description)

	sig := Sign(v, c.cfg.Passphrase)
	v.Set("signature", sig)

	return &Payment{Params: v, Signature: sig}
}

// ProcessURL returns the hosted payment page for the configured deployment
// mode.
func (c *Client) ProcessURL() string {
	if c.cfg.Sandbox {
		return sandboxProcessURL
	}
	return productionProcessURL
}

// VerifyNotification parses a raw form-encoded callback body, recomputes the
// signature over every field except the signature itself, and compares. The
// body is parsed by hand because the signed input depends on the wire order
// of the fields, which url.Values discards.
func (c *Client) VerifyNotification(body string) (*Notification, error) {
	v, err := ParseForm(body)
	if err != nil {
		return nil, errors.Wrap(err, "parse callback body")
	}

	sig := v.Get("signature")
	if sig == "" {
		return nil, ErrMissingSignature
	}
	v.Delete("signature")

	if Sign(v, c.cfg.Passphrase) != sig {
		return nil, ErrInvalidSignature
	}

	amount := decimal.Zero
	if raw := v.Get("amount_gross"); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parse amount_gross")
		}
	}

	return &Notification{
		PaymentStatus:    v.Get("payment_status"),
		OrderID:          v.Get("m_payment_id"),
		GatewayPaymentID: v.Get("pf_payment_id"),
		Amount:           amount,
	}, nil
}

// ParseForm decodes an application/x-www-form-urlencoded body into an
// ordered Values, preserving the wire order of the fields.
func ParseForm(body string) (*Values, error) {
	v := &Values{}
	for _, field := range strings.Split(body, "&") {
		if field == "" {
			continue
		}
		key, value, _ := strings.Cut(field, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, errors.Wrapf(err, "unescape key %q", field)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, errors.Wrapf(err, "unescape value %q", field)
		}
		v.Set(key, value)
	}
	return v, nil
}
