package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

type stripeProcessor struct {
	api    *client.API
	logger *slog.Logger
}

func NewStripeProcessor(secretKey string, logger *slog.Logger) (Processor, error) {
	return newStripeProcessor(secretKey, nil, logger)
}

// newStripeProcessor uses the default Stripe API backend when backend is nil.
func newStripeProcessor(secretKey string, backend stripe.Backend, logger *slog.Logger) (*stripeProcessor, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	var backends *stripe.Backends
	if backend != nil {
		backends = &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
	}
	api := &client.API{}
	api.Init(secretKey, backends)
	return &stripeProcessor{api: api, logger: logger}, nil
}

func (p *stripeProcessor) CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error) {
	sp := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.Amount),
		Currency: stripe.String(strings.ToLower(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	sp.Context = ctx
	for k, v := range params.Metadata() {
		sp.AddMetadata(k, v)
	}

	pi, err := p.api.PaymentIntents.New(sp)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	p.logger.Info("Payment intent created",
		slog.String("payment_intent_id", pi.ID),
		slog.Int("tournament_id", params.TournamentID),
		slog.Int("user_id", params.UserID),
		slog.Int64("amount", params.Amount),
	)
	return toPaymentIntent(pi), nil
}

func (p *stripeProcessor) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	sp := &stripe.PaymentIntentParams{}
	sp.Context = ctx
	pi, err := p.api.PaymentIntents.Get(id, sp)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) &&
			(stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment intent %s: %w", id, err)
	}
	return toPaymentIntent(pi), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}
