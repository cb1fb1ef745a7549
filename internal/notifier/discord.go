// Package notifier はDiscord Webhookへのリマインダー・ダイジェスト配信を提供する。
// 配信は単発のHTTP POSTのベストエフォートであり、リトライキューは持たない。
// 失敗はログとメトリクスに記録し、呼び出し元へはbool成否のみ返す。
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/hitoshi/calremind/internal/model"
)

// Discord埋め込みのアクセントカラー。
const (
	reminderColor = 0x7c3aed
	digestColor   = 0x4ade80
)

// DeliveryRecorder は配信結果メトリクスの記録インターフェース。
type DeliveryRecorder interface {
	RecordReminderSent()
	RecordDigestSent()
	RecordDeliveryFailure()
}

// Notifier はDiscord Webhookへ通知メッセージを配信する。
type Notifier struct {
	client  *http.Client // SSRF防止機能とタイムアウト付きのクライアントを渡すこと
	logger  *slog.Logger
	metrics DeliveryRecorder
	loc     *time.Location // 通知本文の時刻表示に使うタイムゾーン
}

// NewNotifier はNotifierを生成する。
func NewNotifier(client *http.Client, logger *slog.Logger, metrics DeliveryRecorder, loc *time.Location) *Notifier {
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		client:  client,
		logger:  logger,
		metrics: metrics,
		loc:     loc,
	}
}

// webhookPayload はDiscord Webhookのリクエストボディ。
type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
	Footer      *embedFooter `json:"footer,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// SendReminder は単一開催のリマインダーを配信し、成否を返す。
// 失敗（ネットワークエラー・非2xxステータス）はログに記録するのみで、
// エラーとしては返さない。
func (n *Notifier) SendReminder(ctx context.Context, webhookURL string, occ model.Occurrence, minutesUntil float64) bool {
	fields := []embedField{
		{
			Name:   "⏰ 開始時刻",
			Value:  occ.Start.In(n.loc).Format("2006/01/02 15:04"),
			Inline: true,
		},
		{
			Name:   "⏱️ 残り時間",
			Value:  fmt.Sprintf("%d分", int(math.Round(minutesUntil))),
			Inline: true,
		},
	}

	if occ.Location != "" {
		fields = append(fields, embedField{
			Name:  "📍 場所",
			Value: occ.Location,
		})
	}

	// @everyoneで注意を引く。ディープリンクがあれば本文に併記する。
	content := "@everyone"
	if occ.HTMLLink != "" {
		content += fmt.Sprintf(" [カレンダーで見る](%s)", occ.HTMLLink)
	}

	payload := webhookPayload{
		Content: content,
		Embeds: []embed{{
			Title:     "📅 " + occ.Title,
			Color:     reminderColor,
			Fields:    fields,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}},
	}

	ok := n.post(ctx, webhookURL, payload)
	if ok {
		n.metrics.RecordReminderSent()
	}
	return ok
}

// SendDigest はデイリーダイジェストを配信し、成否を返す。
// 開催が1件もない日はその旨を明記したメッセージを送る。
// ダイジェストは日次スケジュールでのみ実行されるため、重複排除もリトライもしない。
func (n *Notifier) SendDigest(ctx context.Context, webhookURL, userEmail string, day time.Time, occurrences []model.Occurrence) bool {
	var description string
	if len(occurrences) == 0 {
		description = "今日の予定はありません。"
	} else {
		var buf bytes.Buffer
		for i, occ := range occurrences {
			if i > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(fmt.Sprintf("%d. **%s** - %s", i+1, occ.Start.In(n.loc).Format("15:04"), occ.Title))
			if occ.Location != "" {
				buf.WriteString(fmt.Sprintf(" (%s)", occ.Location))
			}
		}
		description = buf.String()
	}

	payload := webhookPayload{
		Content: "@everyone",
		Embeds: []embed{{
			Title:       "📋 今日の予定 - " + formatDate(day.In(n.loc)),
			Description: description,
			Color:       digestColor,
			Fields: []embedField{{
				Name:   "合計",
				Value:  fmt.Sprintf("%d件", len(occurrences)),
				Inline: true,
			}},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Footer:    &embedFooter{Text: userEmail},
		}},
	}

	ok := n.post(ctx, webhookURL, payload)
	if ok {
		n.metrics.RecordDigestSent()
	}
	return ok
}

// post はWebhookへペイロードをPOSTし、2xxのみ成功として返す。
func (n *Notifier) post(ctx context.Context, webhookURL string, payload webhookPayload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("failed to marshal webhook payload",
			slog.String("error", err.Error()),
		)
		n.metrics.RecordDeliveryFailure()
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("failed to create webhook request",
			slog.String("error", err.Error()),
		)
		n.metrics.RecordDeliveryFailure()
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("webhook request failed",
			slog.String("error", err.Error()),
		)
		n.metrics.RecordDeliveryFailure()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Error("webhook returned non-success status",
			slog.Int("http_status", resp.StatusCode),
		)
		n.metrics.RecordDeliveryFailure()
		return false
	}

	return true
}

// weekdayNames は日付見出しに使う曜日表記。
var weekdayNames = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// formatDate は日付見出し（例: 2026年8月31日(月)）を組み立てる。
func formatDate(t time.Time) string {
	return fmt.Sprintf("%d年%d月%d日(%s)", t.Year(), int(t.Month()), t.Day(), weekdayNames[t.Weekday()])
}
