package omise

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"github.com/kornthana/memberpay-backend/pkg/config"
	"github.com/kornthana/memberpay-backend/pkg/logger"
)

var (
	errPublicKeyRequired = errors.New("omise public key is required")
	errSecretKeyRequired = errors.New("omise secret key is required")
)

// Charge is the gateway-neutral view of an Omise charge used by the core.
type Charge struct {
	ID             string
	Status         string
	AmountSatang   int64
	Currency       string
	Paid           bool
	QRCodeURL      *string
	FailureCode    string
	FailureMessage string
}

// ChargeInput carries everything needed to create a charge.
type ChargeInput struct {
	AmountSatang int64
	Currency     string
	Method       string
	CardToken    string
	Description  string
}

// Client wraps the Omise API client behind the surface the payment core needs.
type Client struct {
	api *omise.Client
}

// NewClient initializes the Omise client with the configured key pair.
func NewClient(ctx context.Context, cfg config.OmiseConfig, logg *logger.Logger) (*Client, error) {
	publicKey := strings.TrimSpace(cfg.PublicKey)
	if publicKey == "" {
		return nil, errPublicKeyRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	if err := validateKeys(publicKey, secretKey); err != nil {
		return nil, err
	}

	api, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("initializing omise client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "omise client initialized")
	}
	return &Client{api: api}, nil
}

// CreateCharge creates a charge for the given input. Card charges attach the
// token directly; promptpay charges go through a source so the response
// carries a scannable QR code.
func (c *Client) CreateCharge(ctx context.Context, input ChargeInput) (*Charge, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("omise client not initialized")
	}

	op := &operations.CreateCharge{
		Amount:      input.AmountSatang,
		Currency:    strings.ToLower(input.Currency),
		Description: input.Description,
	}

	switch input.Method {
	case "card":
		if input.CardToken == "" {
			return nil, errors.New("card charges require a token")
		}
		op.Card = input.CardToken
	case "promptpay":
		source := &omise.Source{}
		createSource := &operations.CreateSource{
			Type:     "promptpay",
			Amount:   input.AmountSatang,
			Currency: strings.ToLower(input.Currency),
		}
		if err := c.api.Do(source, createSource); err != nil {
			return nil, fmt.Errorf("creating promptpay source: %w", err)
		}
		op.Source = source.ID
	default:
		return nil, fmt.Errorf("unsupported charge method %q", input.Method)
	}

	charge := &omise.Charge{}
	if err := c.api.Do(charge, op); err != nil {
		return nil, fmt.Errorf("creating charge: %w", err)
	}
	return fromOmiseCharge(charge), nil
}

// GetCharge fetches the current state of a charge from Omise. Webhook events
// are authenticated by this re-fetch rather than by signature.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("omise client not initialized")
	}
	if strings.TrimSpace(chargeID) == "" {
		return nil, errors.New("charge id is required")
	}

	charge := &omise.Charge{}
	if err := c.api.Do(charge, &operations.RetrieveCharge{ChargeID: chargeID}); err != nil {
		return nil, fmt.Errorf("retrieving charge %s: %w", chargeID, err)
	}
	return fromOmiseCharge(charge), nil
}

func fromOmiseCharge(charge *omise.Charge) *Charge {
	out := &Charge{
		ID:           charge.ID,
		Status:       string(charge.Status),
		AmountSatang: charge.Amount,
		Currency:     strings.ToUpper(charge.Currency),
		Paid:         charge.Paid,
		QRCodeURL:    extractQRCodeURL(charge),
	}
	if charge.FailureCode != nil {
		out.FailureCode = *charge.FailureCode
	}
	if charge.FailureMessage != nil {
		out.FailureMessage = *charge.FailureMessage
	}
	return out
}

func extractQRCodeURL(charge *omise.Charge) *string {
	if charge.Source == nil || charge.Source.ScannableCode == nil {
		return nil
	}
	image := charge.Source.ScannableCode.Image
	if image == nil || image.DownloadURI == "" {
		return nil
	}
	uri := image.DownloadURI
	return &uri
}

// DeclineDetails extracts the Omise error code and message when err came from
// the gateway rejecting the request, reporting false for transport failures.
func DeclineDetails(err error) (code, message string, ok bool) {
	var apiErr *omise.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	return "", "", false
}

func validateKeys(publicKey, secretKey string) error {
	if !strings.HasPrefix(publicKey, "pkey_") {
		return fmt.Errorf("omise public key must start with pkey_")
	}
	if !strings.HasPrefix(secretKey, "skey_") {
		return fmt.Errorf("omise secret key must start with skey_")
	}
	return nil
}
