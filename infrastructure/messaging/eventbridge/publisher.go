// Package eventbridge publishes engine events to an AWS EventBridge bus so
// downstream consumers (recommendation refreshers, analytics) can react
// without the engine knowing about them.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"github.com/pmacom/fivethirtynews-relate/application/ports"
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// EventSource identifies this service on the bus.
const EventSource = "fivethirtynews.relate"

// Publisher implements ports.EventBus on EventBridge.
type Publisher struct {
	client       *eventbridge.Client
	eventBusName string
	logger       *zap.Logger
}

// NewClient builds an EventBridge client from the default AWS config chain.
func NewClient(ctx context.Context, region string) (*eventbridge.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, apperrors.NewUnavailableError("aws config")
	}
	return eventbridge.NewFromConfig(cfg), nil
}

// NewPublisher creates an EventBridge publisher targeting eventBusName.
func NewPublisher(client *eventbridge.Client, eventBusName string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
	}
}

var _ ports.EventBus = (*Publisher)(nil)

// Publish sends one event. Callers treat failures as best effort; this
// method still reports them so the caller can log.
func (p *Publisher) Publish(ctx context.Context, event ports.Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return apperrors.NewInternalError("marshal event detail", err)
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.eventBusName),
				Source:       aws.String(EventSource),
				DetailType:   aws.String(event.Type),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(event.OccurredAt),
			},
		},
	})
	if err != nil {
		return apperrors.NewStorageError("publish event", err)
	}
	if result.FailedEntryCount > 0 {
		for _, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Warn("event entry rejected",
					zap.String("eventType", event.Type),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return apperrors.NewUnavailableError(fmt.Sprintf("eventbridge bus %s", p.eventBusName))
	}

	p.logger.Debug("event published",
		zap.String("eventType", event.Type),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}

// NoopPublisher discards events. Used when no event bus is configured.
type NoopPublisher struct{}

var _ ports.EventBus = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, ports.Event) error { return nil }
