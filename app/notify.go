package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

// GrantNotifier publishes a message for every applied quota grant.
type GrantNotifier interface {
	NotifyGrant(ctx context.Context, msg models.QuotaGrantMessage) error
}

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotifier sends grant messages to an SQS queue.
type SQSNotifier struct {
	client   sqsSender
	queueURL string
}

// NewSQSNotifier loads the default AWS config for the queue's account.
func NewSQSNotifier(ctx context.Context, queueURL string) (*SQSNotifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for SQS: %w", err)
	}
	return &SQSNotifier{client: sqs.NewFromConfig(awsCfg), queueURL: queueURL}, nil
}

func (n *SQSNotifier) NotifyGrant(ctx context.Context, msg models.QuotaGrantMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if _, err := n.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send grant message for user=%s: %w", msg.UserID, err)
	}
	return nil
}

// notifyGrant publishes best effort; the grant itself already succeeded.
func (s *Server) notifyGrant(ctx context.Context, msg models.QuotaGrantMessage) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyGrant(ctx, msg); err != nil {
		s.logger.Warn("grant notification failed", "user", msg.UserID, "event", msg.EventID, "err", err)
	}
}
