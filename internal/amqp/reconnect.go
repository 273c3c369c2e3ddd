package amqp

import (
	"context"
	"time"

	"gestor/internal/log"
)

// ConsumeWithReconnect keeps a consumer alive across broker restarts.
// Connection-level failures trigger a redial with exponential backoff;
// the attempt counter resets once a connection succeeds.
func ConsumeWithReconnect(ctx context.Context, url, exchangeName, queueName string,
	logger *log.Logger, handler func(*BoletoDispatchMessage) error) error {

	l := logger.WithComponent(log.ComponentAMQP)
	attempt := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		client, err := NewClient(url, exchangeName, queueName, logger)
		if err != nil {
			wait := exponentialBackoff(attempt)
			attempt++
			l.Error("connect failed, retrying", log.FieldError, err, "wait", wait.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		err = client.ConsumeBoletoDispatch(ctx, handler)
		client.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		l.Error("consumer lost connection, reconnecting", log.FieldError, err)
	}
}
