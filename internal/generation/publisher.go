package generation

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// PubSubPublisher publishes generation jobs to the configured topic.
type PubSubPublisher struct {
	publisher *pubsub.Publisher
}

// NewPubSubPublisher wraps a Pub/Sub publisher handle.
func NewPubSubPublisher(publisher *pubsub.Publisher) (*PubSubPublisher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &PubSubPublisher{publisher: publisher}, nil
}

// PublishGenerationJob publishes the job and waits for the server ack.
func (p *PubSubPublisher) PublishGenerationJob(ctx context.Context, job JobMessage) error {
	data, err := EncodeJobMessage(job)
	if err != nil {
		return err
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing generation job: %w", err)
	}
	return nil
}
