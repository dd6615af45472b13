package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Destroyer deletes one hosted image by its storage key. The image host
// client satisfies this; its destroy is idempotent so redeliveries are
// harmless.
type Destroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

// StartImageCleanupConsumer connects to RabbitMQ, declares the durable
// image.cleanup queue and processes events forever. A failed deletion is
// nacked back onto the queue for redelivery; the loop reconnects with
// backoff when the broker goes away. Intended to run in its own goroutine.
func StartImageCleanupConsumer(host Destroyer) error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("cleanup-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, host); err != nil {
			log.Printf("cleanup-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, host Destroyer) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("cleanup-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(imageCleanupQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(imageCleanupQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, host); err != nil {
			log.Printf("cleanup-consumer: handle message failed: %v", err)
			// Requeue after a short pause so a host outage does not spin.
			time.Sleep(time.Second)
			_ = d.Nack(false, true)
			continue
		}
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}

// handleMessage destroys every image named in the event. Filenames that
// were already destroyed on a previous delivery report success again, so
// partial progress is never lost or repeated destructively.
func handleMessage(body []byte, host Destroyer) error {
	var ev ImageCleanupEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		// A malformed payload will never parse; drop it rather than loop.
		log.Printf("cleanup-consumer: dropping malformed event: %v", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, name := range ev.Filenames {
		if err := host.Destroy(ctx, name); err != nil {
			return fmt.Errorf("destroy %q (campground %d): %w", name, ev.CampgroundID, err)
		}
	}
	return nil
}
