package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-456")}, nil
}

func TestSQSPublisherSendsEvent(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", queueURL: "https://example.com/queue", client: client, log: ensureLogger(nil)}

	msg, err := pub.Publish(context.Background(), Event{RunID: "run-1", Stage: StageSourceControl, Records: 3})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if msg != "sqs message msg-123" {
		t.Fatalf("unexpected message %q", msg)
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["run_id"]
	if !ok || aws.ToString(attr.StringValue) != "run-1" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("run_id attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"records":3`) {
		t.Fatalf("body missing records: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{id: "queue", client: &fakeSQSClient{err: errors.New("boom")}, log: ensureLogger(nil)}
	if _, err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestSNSPublisherSendsEvent(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "topic", topicARN: "arn:aws:sns:::topic", client: client, log: ensureLogger(nil)}

	msg, err := pub.Publish(context.Background(), Event{RunID: "run-2"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if msg != "sns message msg-456" {
		t.Fatalf("unexpected message %q", msg)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"run_id":"run-2"`) {
		t.Fatalf("Message missing run_id: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	pub := &snsPublisher{id: "topic", client: &fakeSNSClient{err: errors.New("boom")}, log: ensureLogger(nil)}
	if _, err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestLoadAWSConfigWithStaticCredentials(t *testing.T) {
	cfg, err := loadAWSConfig(context.Background(), "ap-south-1", &AWSCredentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("loadAWSConfig: %v", err)
	}
	if cfg.Region != "ap-south-1" {
		t.Fatalf("unexpected region %q", cfg.Region)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "AKID" {
		t.Fatalf("static credentials not used: %q", creds.AccessKeyID)
	}
}
