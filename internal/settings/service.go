// Package settings は通知設定の取得・更新のビジネスロジックを提供する。
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/hitoshi/calremind/internal/model"
	"github.com/hitoshi/calremind/internal/repository"
)

// リマインド時間として受け付ける範囲（分）。
const (
	MinReminderMinutes = 1
	MaxReminderMinutes = 60
)

// SSRFValidator はWebhook URLのSSRF検証インターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
}

// Service は通知設定に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	ssrfGuard SSRFValidator
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, ssrfGuard SSRFValidator, logger *slog.Logger) *Service {
	return &Service{
		userRepo:  userRepo,
		ssrfGuard: ssrfGuard,
		logger:    logger,
	}
}

// Settings は設定APIのレスポンスに使う通知設定のスナップショット。
type Settings struct {
	WebhookURL      string `json:"webhook_url"`
	ReminderMinutes int    `json:"reminder_minutes"`
	Enabled         bool   `json:"enabled"`
}

// Get はユーザーの現在の通知設定を返す。
func (s *Service) Get(ctx context.Context, userID string) (*Settings, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return &Settings{
		WebhookURL:      user.WebhookURL,
		ReminderMinutes: user.ReminderMinutes,
		Enabled:         user.Enabled,
	}, nil
}

// Update はユーザーの通知設定を検証して保存する。
// Webhook URLはhttpsスキームかつSSRF検証を通過する必要がある。
// 空文字列のWebhook URLは「未設定」（通知停止）として受け付ける。
// リマインド時間は1〜60分の範囲外を拒否する。
func (s *Service) Update(ctx context.Context, userID string, settings *Settings) (*Settings, error) {
	if settings.ReminderMinutes < MinReminderMinutes || settings.ReminderMinutes > MaxReminderMinutes {
		return nil, model.NewInvalidReminderMinutesError(settings.ReminderMinutes)
	}

	if settings.WebhookURL != "" {
		if err := s.validateWebhookURL(settings.WebhookURL); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.UpdateSettings(ctx, userID, settings.WebhookURL, settings.ReminderMinutes, settings.Enabled); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.logger.Info("設定を更新しました",
		slog.String("user_id", userID),
		slog.Int("reminder_minutes", settings.ReminderMinutes),
		slog.Bool("enabled", settings.Enabled),
	)

	return s.Get(ctx, userID)
}

// validateWebhookURL はWebhook URLの形式とSSRF検証を行う。
func (s *Service) validateWebhookURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.NewInvalidWebhookURLError("URLとして解釈できません")
	}
	if parsed.Scheme != "https" {
		return model.NewInvalidWebhookURLError("httpsのみ使用できます")
	}
	if parsed.Host == "" {
		return model.NewInvalidWebhookURLError("ホスト名がありません")
	}

	if err := s.ssrfGuard.ValidateURL(rawURL); err != nil {
		return model.NewSSRFBlockedError()
	}

	return nil
}
