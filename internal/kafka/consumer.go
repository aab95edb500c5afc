package kafka

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type Consumer struct {
	r       *kafka.Reader
	workers int
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers}
}

func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 256)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for m := range jobs {
				if err := h(gctx, m); err != nil {
					log.Printf("consumer handler: %v", err)
					time.Sleep(200 * time.Millisecond) // backoff ringan; offset tidak di-commit
					continue
				}
				if err := c.r.CommitMessages(gctx, m); err != nil {
					log.Printf("commit offset: %v", err)
				}
			}
			return nil
		})
	}

	var readErr error
	for readErr == nil {
		m, err := c.r.ReadMessage(gctx)
		if err != nil {
			readErr = err
			break
		}
		select {
		case jobs <- m:
		case <-gctx.Done():
			readErr = gctx.Err()
		}
	}
	close(jobs)
	_ = g.Wait()

	// shutdown biasa bukan error
	select {
	case <-ctx.Done():
		return nil
	default:
		return readErr
	}
}
