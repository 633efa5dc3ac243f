// Package payments wraps the third-party payment processor used for paid
// tournament entry.
package payments

import (
	"context"
	"errors"
	"strconv"
)

var (
	ErrProcessorUnavailable = errors.New("payment processor is not configured")
	ErrIntentNotFound       = errors.New("payment intent not found")
)

const StatusSucceeded = "succeeded"

// Metadata keys attached to every intent created for a registration.
const (
	MetadataTournamentID = "tournament_id"
	MetadataUserID       = "user_id"
)

type PaymentIntent struct {
	ID           string            `json:"payment_intent_id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"-"`
}

type CreateIntentParams struct {
	Amount       int64
	Currency     string
	TournamentID int
	UserID       int
}

func (p CreateIntentParams) Metadata() map[string]string {
	return map[string]string{
		MetadataTournamentID: strconv.Itoa(p.TournamentID),
		MetadataUserID:       strconv.Itoa(p.UserID),
	}
}

// Processor creates payment intents and reports their state back.
type Processor interface {
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

type disabledProcessor struct{}

// NewDisabledProcessor is used when no processor key is configured. Every call
// fails with ErrProcessorUnavailable.
func NewDisabledProcessor() Processor {
	return disabledProcessor{}
}

func (disabledProcessor) CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error) {
	return nil, ErrProcessorUnavailable
}

func (disabledProcessor) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	return nil, ErrProcessorUnavailable
}
