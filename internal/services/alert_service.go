package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/dreyes/amparo/internal/models"
)

// SESAlertService emails the security operator when a lockout opens. It
// implements LockoutNotifier.
type SESAlertService struct {
	sesClient       *ses.Client
	fromAddress     string
	operatorAddress string
	logger          *slog.Logger
}

// NewSESAlertService creates a new SES-backed lockout notifier
func NewSESAlertService(region, fromAddress, operatorAddress string, logger *slog.Logger) (*SESAlertService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESAlertService{
		sesClient:       ses.NewFromConfig(cfg),
		fromAddress:     fromAddress,
		operatorAddress: operatorAddress,
		logger:          logger,
	}, nil
}

// NotifyLockout sends the alert email for a freshly opened lockout
func (s *SESAlertService) NotifyLockout(ctx context.Context, lockout *models.AccountLockout) error {
	subject := fmt.Sprintf("Cuenta bloqueada: %s", lockout.Username)
	textBody := fmt.Sprintf(
		"La cuenta %q fue bloqueada tras %d intentos fallidos.\n\nIP de origen: %s\nBloqueada hasta: %s\n\nPuede desbloquearla desde el panel de administración.",
		lockout.Username,
		lockout.AttemptCount,
		lockout.IPAddress,
		lockout.LockedUntil.Format("2006-01-02 15:04:05 MST"),
	)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.operatorAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send lockout alert: %w", err)
	}

	s.logger.InfoContext(ctx, "lockout alert sent",
		slog.String("operator", s.operatorAddress),
	)

	return nil
}
