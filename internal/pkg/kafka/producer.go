package kafka

import (
	"Haven/internal/api/config"
	log "log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	pkgerrors "github.com/pkg/errors"
)

// 会话生命周期事件类型，供邮件通知与离线分析管道消费
const (
	EventTypeThreadCreated = "thread.created"
	EventTypeThreadClaimed = "thread.claimed"
	EventTypeThreadClosed  = "thread.closed"
	EventTypeDigest        = "thread.digest"
)

// ThreadEvent 投递到 Kafka 的会话事件，只携带元数据
type ThreadEvent struct {
	Type        string `json:"type"`
	ThreadID    uint64 `json:"thread_id,omitempty"`
	CounselorID uint64 `json:"counselor_id,omitempty"`
	Count       int64  `json:"count,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// Producer 异步生产者封装，发送即忘：投递失败只记日志
type Producer struct {
	ap    sarama.AsyncProducer
	topic string
}

// NewProducer 构造函数，同时启动错误回收协程
func NewProducer(cfg *config.Config) (*Producer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	ap, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "kafka async producer")
	}

	p := &Producer{
		ap:    ap,
		topic: cfg.KafkaThreadEvents.Topic,
	}

	go func() {
		for perr := range ap.Errors() {
			log.Error("Kafka 事件投递失败", "topic", perr.Msg.Topic, "err", perr.Err)
		}
	}()

	return p, nil
}

// Publish 发布会话事件，失败不阻塞调用方
func (p *Producer) Publish(event *ThreadEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error("Kafka 事件序列化失败", "type", event.Type, "err", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(event.ThreadID, 10)),
		Value: sarama.ByteEncoder(data),
	}

	select {
	case p.ap.Input() <- msg:
	default:
		log.Warn("Kafka 发送缓冲已满，事件被丢弃", "type", event.Type, "thread_id", event.ThreadID)
	}
}

// Close 优雅关闭生产者
func (p *Producer) Close() {
	p.ap.AsyncClose()
}
