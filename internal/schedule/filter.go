package schedule

// TimeFilter は時刻行の表示フィルタ種別を表す。
// フィルタはスロット宇宙や集計結果を変更しない純粋な表示上の射影であり、
// 選択はユーザーごとのローカル設定でイベントの状態ではない。
type TimeFilter string

const (
	// TimeFilterAll は全時刻行を表示するフィルタ。
	TimeFilterAll TimeFilter = "all"
	// TimeFilterHideWorking は勤務時間帯に含まれる時刻行を隠すフィルタ。
	TimeFilterHideWorking TimeFilter = "hide-working"
	// TimeFilterOnlyWorking は勤務時間帯の時刻行のみ表示するフィルタ。
	TimeFilterOnlyWorking TimeFilter = "only-working"
)

// ParseTimeFilter は文字列をTimeFilterに変換する。
// 空文字列はTimeFilterAllとして扱う。未知の値はok=falseを返す。
func ParseTimeFilter(s string) (TimeFilter, bool) {
	switch TimeFilter(s) {
	case "":
		return TimeFilterAll, true
	case TimeFilterAll, TimeFilterHideWorking, TimeFilterOnlyWorking:
		return TimeFilter(s), true
	default:
		return "", false
	}
}

// FilterTimes は時刻列からフィルタに応じた表示部分集合を導出する。
// 勤務時間帯は [workStart, workEnd) の半開区間で、イベント自身の
// 時刻範囲とは独立した設定値。"HH:MM"はゼロ埋めのため辞書順比較で足りる。
func FilterTimes(times []string, filter TimeFilter, workStart, workEnd string) []string {
	switch filter {
	case TimeFilterOnlyWorking:
		var kept []string
		for _, t := range times {
			if t >= workStart && t < workEnd {
				kept = append(kept, t)
			}
		}
		return kept
	case TimeFilterHideWorking:
		var kept []string
		for _, t := range times {
			if t < workStart || t >= workEnd {
				kept = append(kept, t)
			}
		}
		return kept
	default:
		return times
	}
}
