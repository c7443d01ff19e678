// Package events publishes purchase events to Kafka.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/xenking/promo-pricing/internal/domain/purchase"
)

// TypePurchaseCreated is the type of events emitted for committed purchases.
const TypePurchaseCreated = "purchase.created"

var _ purchase.Listener = (*Publisher)(nil)

// Publisher sends one message per committed purchase.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	newID    func() uuid.UUID
}

// NewProducerConfig returns the sarama config used for purchase events.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Timeout = 5 * time.Second
	return cfg
}

// NewPublisher connects a sync producer to brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}
	return newPublisher(producer, topic), nil
}

func newPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic, newID: uuid.New}
}

// PurchaseCreated publishes p keyed by its promo code, or by product ID when
// it has none, so events for one code stay ordered.
func (p *Publisher) PurchaseCreated(_ context.Context, pur *purchase.Purchase) error {
	key := pur.PromoCode
	if key == "" {
		key = strconv.FormatInt(pur.ProductID, 10)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(encodePurchase(p.newID(), pur)),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return errors.Wrapf(err, "publish purchase %d", pur.ID)
	}
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

func encodePurchase(id uuid.UUID, pur *purchase.Purchase) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(id.String()) })
		e.Field("type", func(e *jx.Encoder) { e.Str(TypePurchaseCreated) })
		e.Field("purchaseId", func(e *jx.Encoder) { e.Int64(pur.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Int64(pur.ProductID) })
		e.Field("promoCode", func(e *jx.Encoder) { optStr(e, pur.PromoCode) })
		e.Field("discountMethod", func(e *jx.Encoder) { optStr(e, string(pur.Method)) })
		e.Field("regularPrice", func(e *jx.Encoder) { e.Str(pur.RegularPrice.String()) })
		e.Field("discountAmount", func(e *jx.Encoder) { e.Str(pur.DiscountAmount.String()) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(pur.Currency) })
		e.Field("warning", func(e *jx.Encoder) { optStr(e, pur.Warning) })
		e.Field("date", func(e *jx.Encoder) { e.Str(pur.Date.Format(time.DateOnly)) })
	})
	return e.Bytes()
}

func optStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}
