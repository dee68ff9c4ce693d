// Package analytics is the read side of the patient topic. It only logs.
package analytics

import (
	"context"

	"github.com/rs/zerolog"

	"patient-management-api/internal/event"
)

type Consumer struct {
	log zerolog.Logger
}

func NewConsumer(log zerolog.Logger) *Consumer {
	return &Consumer{log: log.With().Str("component", "analytics-consumer").Logger()}
}

// Handle logs one patient event. Payloads that do not decode are logged and
// dropped; Handle never fails.
func (c *Consumer) Handle(_ context.Context, body []byte) {
	e, err := event.Unmarshal(body)
	if err != nil {
		c.log.Error().Err(err).Int("bytes", len(body)).Msg("error deserializing event")
		return
	}

	c.log.Info().
		Str("patient_id", e.PatientID).
		Str("patient_name", e.Name).
		Str("patient_email", e.Email).
		Str("event_type", e.EventType).
		Msg("received patient event")
}
