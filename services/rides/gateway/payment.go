package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/okapiride/dispatch/internal/pkg/logger"
	"github.com/okapiride/dispatch/internal/pkg/models"
	"github.com/okapiride/dispatch/services/rides"
)

// paymentGateway records the charge a completed ride should incur as a
// manual-capture payment intent. Capture itself belongs to the billing
// collaborator; the core only states amount and reference.
type paymentGateway struct {
	enabled  bool
	currency string
}

// NewPaymentGateway creates a new payment gateway
func NewPaymentGateway(cfg models.PaymentConfig, currency string) rides.PaymentGW {
	if cfg.Enabled {
		stripe.Key = cfg.StripeAPIKey
	}
	return &paymentGateway{enabled: cfg.Enabled, currency: currency}
}

func (g *paymentGateway) RecordCharge(ctx context.Context, ride *models.Ride) error {
	amount := ride.EstimatedPrice
	if ride.FinalPrice != nil {
		amount = *ride.FinalPrice
	}
	amount += ride.CancellationFee
	if amount <= 0 {
		return nil
	}

	if !g.enabled {
		logger.Info("payment disabled, charge recorded locally only", logrus.Fields{
			"ride_id": ride.ID.String(),
			"amount":  amount,
		})
		return nil
	}

	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(strings.ToLower(g.currency)),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String(fmt.Sprintf("ride %s", ride.ID)),
	}
	params.AddMetadata("ride_id", ride.ID.String())
	params.AddMetadata("client_id", ride.ClientID.String())

	intent, err := paymentintent.New(params)
	if err != nil {
		return fmt.Errorf("failed to record charge: %w", err)
	}

	logger.Info("charge recorded", logrus.Fields{
		"ride_id":   ride.ID.String(),
		"intent_id": intent.ID,
		"amount":    amount,
	})
	return nil
}
