package schedule

import "sort"

// Aggregate は全参加者の回答をスロットごとに集約したビュー。
// 永続化されず、参加者一覧から毎回再計算される投影である。
type Aggregate struct {
	// Names はスロット識別子から回答者名一覧へのマップ。
	// 名前はアルファベット順（sort.Strings）でソートされ、決定的な順序を保証する。
	Names map[string][]string
	// Counts はスロット識別子から回答人数へのマップ。
	// 常に len(Names[slot]) と一致する。
	Counts map[string]int
	// MaxCount は全スロット中の最大回答人数。回答が1件もない場合は0。
	MaxCount int
}

// NewAggregate は参加者名から回答スロット集合へのマップを集計する。
// 現在のグリッドに属さないスロット（設定変更前の古い識別子など）は
// エラーとせず黙って無視する。同一参加者の重複スロットは1件として数える。
// 集計は純粋な再計算であり、同じ入力に対して常に同じ結果を返す（冪等）。
func NewAggregate(grid Grid, availability map[string][]string) *Aggregate {
	seen := make(map[string]map[string]bool)

	for name, slots := range availability {
		for _, slot := range slots {
			if !grid.Contains(slot) {
				continue
			}
			if seen[slot] == nil {
				seen[slot] = make(map[string]bool)
			}
			seen[slot][name] = true
		}
	}

	agg := &Aggregate{
		Names:  make(map[string][]string, len(seen)),
		Counts: make(map[string]int, len(seen)),
	}

	for slot, names := range seen {
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)

		agg.Names[slot] = sorted
		agg.Counts[slot] = len(sorted)
		if len(sorted) > agg.MaxCount {
			agg.MaxCount = len(sorted)
		}
	}

	return agg
}

// Count はスロットの回答人数を返す。回答がないスロットは0。
func (a *Aggregate) Count(slot string) int {
	return a.Counts[slot]
}

// IsPeak はスロットが最大回答人数に達しているかを返す。
// MaxCountが0の場合はどのスロットもピークにならない。
// 同数のスロットが複数ある場合はすべてピークとして扱う。
func (a *Aggregate) IsPeak(slot string) bool {
	return a.MaxCount > 0 && a.Counts[slot] == a.MaxCount
}

// PeakSlots は最大回答人数に達しているスロット識別子を昇順で返す。
// MaxCountが0の場合は空列を返す。
func (a *Aggregate) PeakSlots() []string {
	if a.MaxCount == 0 {
		return nil
	}
	var peaks []string
	for slot, count := range a.Counts {
		if count == a.MaxCount {
			peaks = append(peaks, slot)
		}
	}
	sort.Strings(peaks)
	return peaks
}
