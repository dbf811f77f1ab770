// Package notification delivers user notifications: an inbox row in
// Postgres, plus optional SES email and SNS push.
package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"jobmatch-workers/internal/common/config"
	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/common/metrics"
	"jobmatch-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var ErrNotificationSendFailed = stderrors.New("NOTIFICATION_SEND_FAILED")

const (
	ChannelInbox = "inbox"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Dispatcher sends one notification to a user.
type Dispatcher interface {
	Notify(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error
}

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled  bool
	FromEmail     string
	PushEnabled   bool
	TopicARN      string
	RatePerSecond float64
	Burst         int
}

func ConfigFrom(cfg config.NotificationConfig) Config {
	return Config{
		EmailEnabled:  cfg.Email.Enabled,
		FromEmail:     cfg.Email.FromEmail,
		PushEnabled:   cfg.Push.Enabled,
		TopicARN:      cfg.Push.TopicARN,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
	}
}

// Service is the Dispatcher used in production. The inbox row is the record
// of delivery; email and push are best effort.
type Service struct {
	config  Config
	db      *sql.DB
	ses     SESService
	sns     SNSService
	limiter *rate.Limiter
	logger  logger.Logger
	now     func() time.Time
}

// NewService builds a Service. ses and sns may be nil when the matching
// channel is disabled.
func NewService(cfg Config, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Service {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Service{
		config:  cfg,
		db:      db,
		ses:     sesClient,
		sns:     snsClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  log.WithFields(map[string]interface{}{"component": "notification"}),
		now:     time.Now,
	}
}

func (s *Service) Notify(ctx context.Context, userID, notificationType, title, message string, data map[string]interface{}) error {
	n := models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: s.now().UTC(),
	}

	if err := s.insertInbox(ctx, n); err != nil {
		metrics.NotificationsSent.WithLabelValues(ChannelInbox, "failed").Inc()
		return errors.NewNotificationSendFailedError(notificationType, err)
	}
	metrics.NotificationsSent.WithLabelValues(ChannelInbox, "sent").Inc()

	if s.config.EmailEnabled && s.ses != nil {
		s.record(ChannelEmail, n.ID, s.sendEmail(ctx, n))
	}
	if s.config.PushEnabled && s.sns != nil && s.config.TopicARN != "" {
		s.record(ChannelPush, n.ID, s.publish(ctx, n))
	}

	s.logger.Info("notification delivered", map[string]interface{}{
		"notificationId": n.ID,
		"userId":         userID,
		"type":           notificationType,
	})
	return nil
}

func (s *Service) insertInbox(ctx context.Context, n models.Notification) error {
	dataJSON, err := json.Marshal(n.Data)
	if err != nil || n.Data == nil {
		dataJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, dataJSON, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: inbox insert: %v", ErrNotificationSendFailed, err)
	}
	return nil
}

// errNoRecipient marks a channel skipped because the user has no address.
var errNoRecipient = stderrors.New("no recipient address")

func (s *Service) sendEmail(ctx context.Context, n models.Notification) error {
	var email sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, n.UserID).Scan(&email)
	if stderrors.Is(err, sql.ErrNoRows) || (err == nil && email.String == "") {
		return errNoRecipient
	}
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = s.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{email.String},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(n.Title)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(n.Message)},
			},
		},
		Source: aws.String(s.config.FromEmail),
	})
	return err
}

// pushPayload is the JSON message published to the SNS topic.
type pushPayload struct {
	NotificationID string                 `json:"notificationId"`
	UserID         string                 `json:"userId"`
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

func (s *Service) publish(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(pushPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Data:           n.Data,
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = s.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.config.TopicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String(n.Title),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"userId": {DataType: aws.String("String"), StringValue: aws.String(n.UserID)},
			"type":   {DataType: aws.String("String"), StringValue: aws.String(n.Type)},
		},
	})
	return err
}

func (s *Service) record(channel, notificationID string, err error) {
	switch {
	case err == nil:
		metrics.NotificationsSent.WithLabelValues(channel, "sent").Inc()
	case stderrors.Is(err, errNoRecipient):
		metrics.NotificationsSent.WithLabelValues(channel, "skipped").Inc()
		s.logger.Debug("notification channel skipped", map[string]interface{}{
			"channel":        channel,
			"notificationId": notificationID,
		})
	default:
		metrics.NotificationsSent.WithLabelValues(channel, "failed").Inc()
		s.logger.Warn("notification channel failed", map[string]interface{}{
			"channel":        channel,
			"notificationId": notificationID,
			"error":          err.Error(),
		})
	}
}
