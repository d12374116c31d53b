package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/keeeal/quoth/server/common/infra/mq"
)

const quothEventsExchange = "quoth.events"

// AMQPPublisher fans archive and quoth events out on a durable topic
// exchange for downstream consumers.
type AMQPPublisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := mq.NewTopicChannel(conn, quothEventsExchange)
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{channel: ch, exchange: quothEventsExchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}

func (p *AMQPPublisher) Close() {
	_ = p.channel.Close()
}
