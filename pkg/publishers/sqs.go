package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsPublisher queues a run event for downstream consumers of the CSV.
type sqsPublisher struct {
	id       string
	queueURL string
	client   sqsAPI
	log      Logger
}

func newSQSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SQS == nil {
		return nil, fmt.Errorf("publisher %q missing sqs configuration", cfg.ID)
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.SQS.Region, cfg.SQS.Credentials)
	if err != nil {
		return nil, err
	}
	return &sqsPublisher{
		id:       cfg.ID,
		queueURL: cfg.SQS.QueueURL,
		client:   sqs.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *sqsPublisher) ID() string   { return s.id }
func (s *sqsPublisher) Type() string { return TypeSQS }

func (s *sqsPublisher) Publish(ctx context.Context, evt Event) (string, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("encode run event: %w", err)
	}

	out, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: sqsAttributes(evt),
	})
	if err != nil {
		return "", fmt.Errorf("sqs send to %s: %w", s.queueURL, err)
	}

	id := aws.ToString(out.MessageId)
	s.log.DebugObj("sqs publisher queued run event", "publisher_sqs", map[string]any{
		"publisher_id": s.id,
		"run_id":       evt.RunID,
		"message_id":   id,
	})
	return "sqs message " + id, nil
}

func sqsAttributes(evt Event) map[string]types.MessageAttributeValue {
	str := func(v string) types.MessageAttributeValue {
		return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	return map[string]types.MessageAttributeValue{
		"run_id": str(evt.RunID),
		"stage":  str(evt.Stage),
	}
}
