package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "sectorwatch.events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 文档注释：Kafka 发布出口
// 背景：事件以 JSON 写入单一 topic，按地图 id 作为消息键，同一地图的事件保持分区内有序。
type Kafka struct {
	w     messageWriter
	topic string
}

func NewKafka(brokers []string, topic string) *Kafka {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Kafka{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

func (k *Kafka) Notify(ctx context.Context, ev Event) error {
	if ev.ID == "" || ev.Kind == "" {
		return fmt.Errorf("event missing required fields: id=%q, kind=%q", ev.ID, ev.Kind)
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(ev.MapID)),
		Value: msg,
	})
}

func (k *Kafka) Close() error { return k.w.Close() }
