package customspeech

import (
	"context"
	"fmt"
	"log"
	"time"
)

// StatusFunc reports the current status of one entity.
type StatusFunc func(ctx context.Context) (string, error)

// WaitForStatus polls fetch every interval until it reports Succeeded
// (nil) or Failed (error). Lookup errors and ctx cancellation end the wait.
func WaitForStatus(ctx context.Context, fetch StatusFunc, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := fetch(ctx)
		if err != nil {
			return err
		}
		switch status {
		case StatusSucceeded:
			return nil
		case StatusFailed:
			return fmt.Errorf("operation finished with status %s", status)
		}
		log.Printf("Status is %s, checking again in %s.", status, interval)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ModelStatusFunc adapts ModelStatus for WaitForStatus.
func (c *Client) ModelStatusFunc(id string) StatusFunc {
	return func(ctx context.Context) (string, error) { return c.ModelStatus(ctx, id) }
}

// EvaluationStatusFunc adapts EvaluationStatus for WaitForStatus.
func (c *Client) EvaluationStatusFunc(id string) StatusFunc {
	return func(ctx context.Context) (string, error) { return c.EvaluationStatus(ctx, id) }
}

// EndpointStatusFunc adapts EndpointStatus for WaitForStatus.
func (c *Client) EndpointStatusFunc(id string) StatusFunc {
	return func(ctx context.Context) (string, error) { return c.EndpointStatus(ctx, id) }
}
