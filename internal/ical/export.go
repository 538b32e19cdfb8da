// Package ical は集計結果のiCalendarエクスポートを提供する。
//
// 最多一致スロットをVEVENTとして書き出し、カレンダーアプリへの
// 取り込みで開催候補を共有できるようにする。
package ical

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/hitoshi/plan2meet/internal/model"
	"github.com/hitoshi/plan2meet/internal/schedule"
)

// AggregateProvider はイベントと集計結果を提供するインターフェース。
type AggregateProvider interface {
	EventAggregate(ctx context.Context, eventID string) (*model.Event, *schedule.Aggregate, error)
}

// Exporter は最多一致スロットのiCalendarエクスポーター。
type Exporter struct {
	provider AggregateProvider
}

// NewExporter はExporterを生成する。
func NewExporter(provider AggregateProvider) *Exporter {
	return &Exporter{provider: provider}
}

// ExportPeaks は最多一致スロットをVEVENTとして含むiCalendarデータを返す。
// 参加者が一人もいないイベントでは空のカレンダーを返す。
// スロットの時刻はタイムゾーン情報を持たないため、フローティング時刻として出力する。
func (e *Exporter) ExportPeaks(ctx context.Context, eventID string) (string, error) {
	event, agg, err := e.provider.EventAggregate(ctx, eventID)
	if err != nil {
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//plan2meet//scheduler//JA")

	now := time.Now().UTC()
	for _, slot := range agg.PeakSlots() {
		start, err := slotStartTime(slot)
		if err != nil {
			continue
		}
		end := start.Add(time.Duration(event.TimeStepMinutes) * time.Minute)

		ve := cal.AddEvent(fmt.Sprintf("%s/%s@plan2meet", event.ID, slot))
		ve.SetDtStampTime(now)
		ve.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsTimeLayout))
		ve.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsTimeLayout))
		ve.SetSummary(fmt.Sprintf("%s（候補: %d名）", event.Title, agg.Count(slot)))
		if names := agg.Names[slot]; len(names) > 0 {
			ve.SetDescription("参加可能: " + strings.Join(names, ", "))
		}
	}

	return cal.Serialize(), nil
}

// icsTimeLayout はタイムゾーンなしのDATE-TIME書式。
const icsTimeLayout = "20060102T150405"

// slotStartTime はスロット識別子から開始時刻を組み立てる。
func slotStartTime(slot string) (time.Time, error) {
	date, clock, ok := schedule.SplitSlot(slot)
	if !ok {
		return time.Time{}, fmt.Errorf("不正なスロット識別子です: %s", slot)
	}
	return time.Parse("2006-01-02 15:04", date+" "+clock)
}
