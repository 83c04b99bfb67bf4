package notify

import (
	"errors"
	"io"
	"log"

	"github.com/kendall-kelly/quickfix-api/config"
)

// FromConfig assembles the notifiers enabled by cfg. The log notifier is
// always present. Brokers that cannot be reached at startup are skipped.
// The returned closer releases every broker connection.
func FromConfig(cfg *config.Config) (Notifier, io.Closer, error) {
	multi := Multi{LogNotifier{}}
	var closers closeAll

	email, err := NewEmailNotifier(cfg)
	if err != nil {
		return nil, nil, err
	}
	multi = append(multi, email)

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		k, err := NewKafkaNotifier(brokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("[notify] kafka disabled: %v", err)
		} else {
			log.Printf("[notify] publishing events to kafka topic %s", cfg.KafkaTopic)
			multi = append(multi, k)
			closers = append(closers, k)
		}
	}

	if cfg.AMQPURL != "" {
		a, err := NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("[notify] rabbitmq disabled: %v", err)
		} else {
			log.Printf("[notify] publishing events to exchange %s", cfg.AMQPExchange)
			multi = append(multi, a)
			closers = append(closers, a)
		}
	}

	return multi, closers, nil
}

type closeAll []io.Closer

func (c closeAll) Close() error {
	var errs []error
	for _, closer := range c {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
