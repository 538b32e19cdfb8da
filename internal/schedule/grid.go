// Package schedule は日程調整グリッドの生成と集計ロジックを提供する。
//
// イベント設定（日付範囲・時刻範囲・刻み幅）から正規化されたスロット列を導出し、
// 参加者の回答をスロットごとの人数と名前一覧に集約する。
// すべて純粋関数であり、I/Oや内部状態を持たない。
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// dateLayout はスロット識別子に使用するISO日付の書式。
const dateLayout = "2006-01-02"

// clockLayout はスロット識別子に使用する時刻の書式。
const clockLayout = "15:04"

// slotSeparator はスロット識別子の日付と時刻の区切り文字。
const slotSeparator = "|"

// ParseClock は"HH:MM"形式の時刻を0時からの経過分に変換する。
// time.Parseは"9:00"のような一桁時も受理するため、
// 正規形に再整形して一致することを要求する。
func ParseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	minutes := t.Hour()*60 + t.Minute()
	if FormatClock(minutes) != s {
		return 0, fmt.Errorf("invalid clock value %q: not in canonical HH:MM form", s)
	}
	return minutes, nil
}

// FormatClock は0時からの経過分を"HH:MM"形式に変換する。
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate は"YYYY-MM-DD"形式の日付を検証して返す。
// ParseClockと同様に、正規形に再整形して一致しない値は拒否する。
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date value %q: %w", s, err)
	}
	if t.Format(dateLayout) != s {
		return time.Time{}, fmt.Errorf("invalid date value %q: not in canonical YYYY-MM-DD form", s)
	}
	return t, nil
}

// TimeSequence はfromからtoの手前までstepMinutes刻みの時刻列を生成する。
// 上限toは含まれず、刻み幅で割り切れない端数の最終スロットは切り捨てられる。
// from >= to の場合は空列を返す。stepMinutesが正でない場合も空列を返す
// （設定エラーはイベント作成時に拒否されるため、ここでは クラッシュせず縮退する）。
func TimeSequence(from, to string, stepMinutes int) []string {
	if stepMinutes <= 0 {
		return nil
	}
	start, err := ParseClock(from)
	if err != nil {
		return nil
	}
	end, err := ParseClock(to)
	if err != nil {
		return nil
	}

	var times []string
	for m := start; m < end; m += stepMinutes {
		times = append(times, FormatClock(m))
	}
	return times
}

// DateSequence はstartからendまでの日付列を両端を含めて生成する。
// start > end の場合は空列を返す。
func DateSequence(start, end string) []string {
	from, err := ParseDate(start)
	if err != nil {
		return nil
	}
	to, err := ParseDate(end)
	if err != nil {
		return nil
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateLayout))
	}
	return dates
}

// SlotKey は日付と時刻からスロット識別子を生成する。
// 外部との境界を越える正規形は "<ISO date>|<HH:MM>"。
func SlotKey(date, clock string) string {
	return date + slotSeparator + clock
}

// SplitSlot はスロット識別子を日付と時刻に分解する。
// 書式が不正な場合はok=falseを返す。
func SplitSlot(slot string) (date, clock string, ok bool) {
	date, clock, found := strings.Cut(slot, slotSeparator)
	if !found {
		return "", "", false
	}
	if _, err := ParseDate(date); err != nil {
		return "", "", false
	}
	if _, err := ParseClock(clock); err != nil {
		return "", "", false
	}
	return date, clock, true
}

// ValidSlot はスロット識別子が正規形かどうかを返す。
func ValidSlot(slot string) bool {
	_, _, ok := SplitSlot(slot)
	return ok
}

// Grid はイベント設定から導出されたスロット宇宙を表す。
// 日付列と時刻列の直積がスロット全体となる。行列としての並び順は
// 表示上の都合であり、正しさには関与しない。
type Grid struct {
	Dates []string
	Times []string

	dateSet map[string]bool
	timeSet map[string]bool
}

// NewGrid はイベント設定からグリッドを生成する。
// 縮退した範囲（start > end、from >= to）は空のグリッドになる。
func NewGrid(dateStart, dateEnd, timeFrom, timeTo string, stepMinutes int) Grid {
	g := Grid{
		Dates:   DateSequence(dateStart, dateEnd),
		Times:   TimeSequence(timeFrom, timeTo, stepMinutes),
		dateSet: make(map[string]bool),
		timeSet: make(map[string]bool),
	}
	for _, d := range g.Dates {
		g.dateSet[d] = true
	}
	for _, t := range g.Times {
		g.timeSet[t] = true
	}
	return g
}

// Slots は全スロット識別子を日付外側・時刻内側の順で返す。
func (g Grid) Slots() []string {
	slots := make([]string, 0, len(g.Dates)*len(g.Times))
	for _, d := range g.Dates {
		for _, t := range g.Times {
			slots = append(slots, SlotKey(d, t))
		}
	}
	return slots
}

// SlotCount はグリッドのスロット総数を返す。
func (g Grid) SlotCount() int {
	return len(g.Dates) * len(g.Times)
}

// Contains はスロット識別子が現在のグリッドに属するかを返す。
// 設定変更前の古いスロットはここでfalseとなり、集計時に無視される。
func (g Grid) Contains(slot string) bool {
	date, clock, ok := SplitSlot(slot)
	if !ok {
		return false
	}
	return g.dateSet[date] && g.timeSet[clock]
}
