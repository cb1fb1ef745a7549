package remind

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/calremind/internal/calendar"
	"github.com/hitoshi/calremind/internal/model"
)

type mockUserRepo struct {
	listEligibleFn func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) UpsertOAuthUser(ctx context.Context, user *model.User) (*model.User, error) {
	return user, nil
}

func (m *mockUserRepo) ListEligible(ctx context.Context) ([]*model.User, error) {
	return m.listEligibleFn(ctx)
}

func (m *mockUserRepo) UpdateSettings(ctx context.Context, id, webhookURL string, reminderMinutes int, enabled bool) error {
	return nil
}

func (m *mockUserRepo) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	return nil
}

type mockProcessor struct {
	processFn func(ctx context.Context, user *model.User) error
	processed []string
}

func (m *mockProcessor) ProcessUser(ctx context.Context, user *model.User) error {
	m.processed = append(m.processed, user.ID)
	if m.processFn != nil {
		return m.processFn(ctx, user)
	}
	return nil
}

type mockSweepMetrics struct {
	sweepDurations int
	authFailures   int
	prunedTotal    int64
}

func (m *mockSweepMetrics) RecordSweepDuration(d time.Duration) { m.sweepDurations++ }
func (m *mockSweepMetrics) RecordAuthFailure()                  { m.authFailures++ }
func (m *mockSweepMetrics) RecordRecordsPruned(count int64)     { m.prunedTotal += count }

func eligibleUsers(ids ...string) []*model.User {
	users := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, &model.User{
			ID:              id,
			WebhookURL:      "https://discord.example.com/api/webhooks/1/abc",
			ReminderMinutes: 10,
			Enabled:         true,
		})
	}
	return users
}

// TestRunOnce_ProcessesAllUsersInOrder は対象ユーザーが1人ずつ順に
// 処理されることを検証する。
func TestRunOnce_ProcessesAllUsersInOrder(t *testing.T) {
	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			return eligibleUsers("user-1", "user-2", "user-3"), nil
		},
	}
	processor := &mockProcessor{}
	notifRepo := &mockNotifRepo{}
	metrics := &mockSweepMetrics{}

	s := NewSweeper(userRepo, notifRepo, processor, testLogger(), metrics)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	want := []string{"user-1", "user-2", "user-3"}
	if len(processor.processed) != len(want) {
		t.Fatalf("processed count = %d, want %d", len(processor.processed), len(want))
	}
	for i, id := range want {
		if processor.processed[i] != id {
			t.Errorf("processed[%d] = %q, want %q", i, processor.processed[i], id)
		}
	}

	if metrics.sweepDurations != 1 {
		t.Errorf("sweep duration recorded %d times, want 1", metrics.sweepDurations)
	}
}

// TestRunOnce_SkipsIneligibleUsers は無効化済み・Webhook未設定の
// ユーザーが通知処理に渡されないことを検証する。
func TestRunOnce_SkipsIneligibleUsers(t *testing.T) {
	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{
				{ID: "user-ok", WebhookURL: "https://discord.example.com/api/webhooks/1/abc", ReminderMinutes: 10, Enabled: true},
				{ID: "user-disabled", WebhookURL: "https://discord.example.com/api/webhooks/2/def", ReminderMinutes: 10, Enabled: false},
				{ID: "user-no-webhook", WebhookURL: "", ReminderMinutes: 10, Enabled: true},
			}, nil
		},
	}
	processor := &mockProcessor{}

	s := NewSweeper(userRepo, &mockNotifRepo{}, processor, testLogger(), &mockSweepMetrics{})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(processor.processed) != 1 {
		t.Fatalf("processed count = %d, want 1", len(processor.processed))
	}
	if processor.processed[0] != "user-ok" {
		t.Errorf("processed[0] = %q, want %q", processor.processed[0], "user-ok")
	}
}

// TestRunOnce_ContinuesAfterUserFailure は個別ユーザーの失敗で
// スイープ全体が中断しないことを検証する。
func TestRunOnce_ContinuesAfterUserFailure(t *testing.T) {
	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			return eligibleUsers("user-1", "user-2"), nil
		},
	}
	processor := &mockProcessor{
		processFn: func(ctx context.Context, user *model.User) error {
			if user.ID == "user-1" {
				return errors.New("boom")
			}
			return nil
		},
	}
	metrics := &mockSweepMetrics{}

	s := NewSweeper(userRepo, &mockNotifRepo{}, processor, testLogger(), metrics)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if len(processor.processed) != 2 {
		t.Errorf("processed count = %d, want 2", len(processor.processed))
	}
	if metrics.authFailures != 0 {
		t.Errorf("auth failures = %d, want 0", metrics.authFailures)
	}
}

// TestRunOnce_RecordsAuthFailure は認証失敗がメトリクスに記録され、
// 残りのユーザーの処理は継続されることを検証する。
func TestRunOnce_RecordsAuthFailure(t *testing.T) {
	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			return eligibleUsers("user-1", "user-2"), nil
		},
	}
	processor := &mockProcessor{
		processFn: func(ctx context.Context, user *model.User) error {
			if user.ID == "user-1" {
				return &calendar.AuthError{Err: errors.New("invalid_grant")}
			}
			return nil
		},
	}
	metrics := &mockSweepMetrics{}

	s := NewSweeper(userRepo, &mockNotifRepo{}, processor, testLogger(), metrics)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if metrics.authFailures != 1 {
		t.Errorf("auth failures = %d, want 1", metrics.authFailures)
	}
	if len(processor.processed) != 2 {
		t.Errorf("processed count = %d, want 2", len(processor.processed))
	}
}

// TestRunOnce_PrunesOldRecords は全ユーザー処理後に保持期間を過ぎた
// 通知記録が削除され、削除数がメトリクスに記録されることを検証する。
func TestRunOnce_PrunesOldRecords(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			return nil, nil
		},
	}

	var gotCutoff int64
	notifRepo := &mockNotifRepo{
		deleteFn: func(ctx context.Context, cutoff int64) (int64, error) {
			gotCutoff = cutoff
			return 7, nil
		},
	}
	metrics := &mockSweepMetrics{}

	s := NewSweeper(userRepo, notifRepo, &mockProcessor{}, testLogger(), metrics)
	s.now = func() time.Time { return now }

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	wantCutoff := now.Add(-24 * time.Hour).Unix()
	if gotCutoff != wantCutoff {
		t.Errorf("cutoff = %d, want %d", gotCutoff, wantCutoff)
	}
	if metrics.prunedTotal != 7 {
		t.Errorf("pruned total = %d, want 7", metrics.prunedTotal)
	}
}

// TestRunOnce_PruneErrorDoesNotFailSweep は通知記録の削除失敗が
// スイープのエラーにならないことを検証する。
func TestRunOnce_PruneErrorDoesNotFailSweep(t *testing.T) {
	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			return nil, nil
		},
	}
	notifRepo := &mockNotifRepo{
		deleteFn: func(ctx context.Context, cutoff int64) (int64, error) {
			return 0, errors.New("db down")
		},
	}
	metrics := &mockSweepMetrics{}

	s := NewSweeper(userRepo, notifRepo, &mockProcessor{}, testLogger(), metrics)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	if metrics.prunedTotal != 0 {
		t.Errorf("pruned total = %d, want 0", metrics.prunedTotal)
	}
}

// TestRunOnce_ListEligibleErrorReturnsError は対象ユーザーの取得失敗が
// エラーとして返ることを検証する。
func TestRunOnce_ListEligibleErrorReturnsError(t *testing.T) {
	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			return nil, errors.New("db down")
		},
	}

	s := NewSweeper(userRepo, &mockNotifRepo{}, &mockProcessor{}, testLogger(), &mockSweepMetrics{})

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// TestStart_RunsImmediatelyAndStopsOnCancel は起動直後に1回実行され、
// コンテキストキャンセルで停止することを検証する。
func TestStart_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	ran := make(chan struct{}, 10)
	userRepo := &mockUserRepo{
		listEligibleFn: func(ctx context.Context) ([]*model.User, error) {
			ran <- struct{}{}
			return nil, nil
		},
	}

	s := NewSweeper(userRepo, &mockNotifRepo{}, &mockProcessor{}, testLogger(), &mockSweepMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("initial sweep did not run")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancel")
	}
}
