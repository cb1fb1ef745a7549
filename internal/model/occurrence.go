package model

import "time"

// DefaultTitle はタイトル未設定のイベントに表示するプレースホルダ。
const DefaultTitle = "(no title)"

// Occurrence はカレンダーイベントの1回分の開催を表す。
// 繰り返しイベントはプロバイダー側で単一インスタンスに展開された状態で取得する。
// 永続化はせず、集約のたびに取得し直す。
type Occurrence struct {
	EventID  string // プロバイダー採番のイベントID。同一インスタンスの再取得で安定
	Title    string
	Start    time.Time
	Location string // 空文字列の場合あり
	HTMLLink string // カレンダーUIへのディープリンク。空文字列の場合あり
}

// StartUnix は通知済みレコードのキーに使う開始時刻（unix秒、切り捨て）を返す。
// 繰り返しイベントではイベントIDが複数の開始時刻で重複するため、
// (ユーザー, イベントID, 開始時刻) の3つ組を重複排除キーとする。
func (o *Occurrence) StartUnix() int64 {
	return o.Start.Unix()
}
