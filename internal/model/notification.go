package model

import "time"

// NotificationRecord は送信済みリマインダーの台帳エントリを表す。
// (UserID, EventID, EventStart) の3つ組が一意であり、
// 同一開催に対する二重通知を防ぐ。
// 配信成功が確認された直後にのみ作成される。
type NotificationRecord struct {
	ID         int64
	UserID     string
	EventID    string
	EventStart int64 // 開催開始時刻（unix秒、切り捨て）
	NotifiedAt time.Time
}
