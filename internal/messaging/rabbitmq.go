// Package messaging maps the patient topic onto RabbitMQ: a topic is a
// durable topic exchange, a consumer group is a durable queue bound to it.
// Instances sharing a group share the queue and compete for deliveries.
package messaging

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"patient-management-api/internal/event"
)

// ErrDeliveriesClosed is returned by Subscriber.Run when the broker closes
// the delivery channel (connection or channel loss).
var ErrDeliveriesClosed = errors.New("delivery channel closed")

func Dial(url string, log zerolog.Logger) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	log.Info().Msg("connected to rabbitmq")
	return conn, nil
}

func declareTopic(ch *amqp.Channel, topic string) error {
	return ch.ExchangeDeclare(
		topic,   // name
		"topic", // kind
		true,    // durable
		false,   // autoDelete
		false,   // internal
		false,   // noWait
		nil,     // args
	)
}

// Publisher writes to one topic.
type Publisher struct {
	ch    *amqp.Channel
	topic string
	log   zerolog.Logger
}

// declareGroup makes sure the group's queue exists and takes every routing
// key on the topic exchange.
func declareGroup(ch *amqp.Channel, topic, group string) error {
	if _, err := ch.QueueDeclare(group, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare group %s: %w", group, err)
	}
	if err := ch.QueueBind(group, "#", topic, false, nil); err != nil {
		return fmt.Errorf("bind group %s to %s: %w", group, topic, err)
	}
	return nil
}

// NewPublisher declares the topic and the given consumer groups, so events
// published before a group's first consumer starts wait in its queue.
func NewPublisher(conn *amqp.Connection, topic string, log zerolog.Logger, groups ...string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareTopic(ch, topic); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare topic %s: %w", topic, err)
	}
	for _, g := range groups {
		if err := declareGroup(ch, topic, g); err != nil {
			ch.Close()
			return nil, err
		}
	}
	return &Publisher{
		ch:    ch,
		topic: topic,
		log:   log.With().Str("component", "publisher").Str("topic", topic).Logger(),
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey, contentType string, body []byte) error {
	msg := amqp.Publishing{
		ContentType:  contentType,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}
	if err := p.ch.PublishWithContext(ctx, p.topic, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", p.topic, routingKey, err)
	}
	return nil
}

// PublishPatientEvent satisfies service.EventPublisher.
func (p *Publisher) PublishPatientEvent(ctx context.Context, e *event.PatientEvent) error {
	key := event.RoutingKey(e.EventType)
	if err := p.Publish(ctx, key, event.ContentType, event.Marshal(e)); err != nil {
		return err
	}
	p.log.Debug().
		Str("patient_id", e.PatientID).
		Str("routing_key", key).
		Msg("patient event published")
	return nil
}

func (p *Publisher) Close() error { return p.ch.Close() }

// Handler processes one message body. It cannot reject: every delivery is
// acked once Handler returns.
type Handler func(ctx context.Context, body []byte)

// Subscriber reads a topic as a member of a consumer group.
type Subscriber struct {
	ch    *amqp.Channel
	topic string
	group string
	log   zerolog.Logger
}

func NewSubscriber(conn *amqp.Connection, topic, group string, prefetch int, log zerolog.Logger) (*Subscriber, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareTopic(ch, topic); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare topic %s: %w", topic, err)
	}
	if err := declareGroup(ch, topic, group); err != nil {
		ch.Close()
		return nil, err
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, err
	}
	return &Subscriber{
		ch:    ch,
		topic: topic,
		group: group,
		log:   log.With().Str("component", "subscriber").Str("topic", topic).Str("group", group).Logger(),
	}, nil
}

// Run blocks delivering messages to h until ctx is done.
func (s *Subscriber) Run(ctx context.Context, h Handler) error {
	tag := "consumer-" + s.group
	deliveries, err := s.ch.Consume(s.group, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.group, err)
	}
	s.log.Info().Msg("consuming")

	for {
		select {
		case <-ctx.Done():
			if err := s.ch.Cancel(tag, false); err != nil {
				s.log.Warn().Err(err).Msg("cancel consumer")
			}
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			h(ctx, d.Body)
			if err := d.Ack(false); err != nil {
				s.log.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("ack failed")
			}
		}
	}
}

func (s *Subscriber) Close() error { return s.ch.Close() }
