package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"

	"kocrou/internal/utils"
)

// KafkaSink publishes events on a topic through an async producer. Emit only
// enqueues; when the producer input is full the event is dropped and logged.
type KafkaSink struct {
	producer sarama.AsyncProducer
	topic    string
	done     chan struct{}
}

type kafkaEnvelope struct {
	Event   string    `json:"event"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

func NewKafkaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "kocrou-api"
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true
	return config
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: aucun broker configuré")
	}
	p, err := sarama.NewAsyncProducer(brokers, NewKafkaConfig())
	if err != nil {
		return nil, err
	}
	return NewKafkaSinkFromProducer(p, topic), nil
}

// NewKafkaSinkFromProducer wraps an existing producer. The sink owns it from
// here on and closes it in Close.
func NewKafkaSinkFromProducer(p sarama.AsyncProducer, topic string) *KafkaSink {
	k := &KafkaSink{producer: p, topic: topic, done: make(chan struct{})}
	go k.drainErrors()
	return k
}

func (k *KafkaSink) drainErrors() {
	defer close(k.done)
	for perr := range k.producer.Errors() {
		utils.LogEvent("", "events", "kafka_error", perr.Error())
	}
}

func (k *KafkaSink) Emit(name string, payload any) {
	value, err := json.Marshal(kafkaEnvelope{Event: name, Payload: payload, At: time.Now()})
	if err != nil {
		utils.LogEvent("", "events", "kafka_encode", err.Error())
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(value),
	}
	if kp, ok := payload.(Keyed); ok {
		msg.Key = sarama.StringEncoder(kp.EventKey())
	}
	select {
	case k.producer.Input() <- msg:
	default:
		utils.LogEvent("", "events", "kafka_drop", "event="+name)
	}
}

// Close flushes buffered messages and waits for the error drain to finish.
func (k *KafkaSink) Close() error {
	err := k.producer.Close()
	<-k.done
	return err
}
