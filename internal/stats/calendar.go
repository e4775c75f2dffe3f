package stats

import (
	"math"
	"time"

	"trade-journal-go/internal/models"
)

// Opacity range for the calendar heat scale. Intensity maps |pnl|/maxAbs
// into [minHeatAlpha, minHeatAlpha+heatAlphaSpan].
const (
	minHeatAlpha  = 0.05
	heatAlphaSpan = 0.2
)

// Bucket is one calendar aggregation unit: summed P&L plus trade count.
type Bucket struct {
	Pnl   float64 `json:"pnl"`
	Count int     `json:"count"`
}

func (b *Bucket) add(other Bucket) {
	b.Pnl += other.Pnl
	b.Count += other.Count
}

// WeekBucket is one 7-day run counted from January 1 of the year. Weeks do
// not follow ISO alignment.
type WeekBucket struct {
	Week  int       `json:"week"`
	Start time.Time `json:"start"`
	Bucket
}

// MonthBucket is one calendar month's roll-up.
type MonthBucket struct {
	Month time.Month `json:"month"`
	Bucket
}

// QuarterBucket is one quarter's roll-up plus its member months.
type QuarterBucket struct {
	Quarter int           `json:"quarter"` // 1..4
	Months  []MonthBucket `json:"months"`
	Bucket
}

// MonthSummary is the daily view's header: the month roll-up plus win-day
// statistics. WinRate is a whole-number percentage, 0 when the month has
// no trading days.
type MonthSummary struct {
	Bucket
	WinDays     int `json:"win_days"`
	TradingDays int `json:"trading_days"`
	WinRate     int `json:"win_rate"`
}

// DayKey renders the bucket key for a timestamp's calendar date.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// GroupByDay buckets closed trades by the calendar date of their closing
// timestamp. Open trades and null-P&L trades are ignored.
func GroupByDay(trades []models.Trade) map[string]Bucket {
	byDay := make(map[string]Bucket)
	for _, t := range trades {
		if t.Pnl == nil || t.ClosedAt == nil {
			continue
		}
		key := DayKey(*t.ClosedAt)
		b := byDay[key]
		b.Pnl += *t.Pnl
		b.Count++
		byDay[key] = b
	}
	return byDay
}

// MonthOf sums the day buckets a month contains.
func MonthOf(byDay map[string]Bucket, year int, month time.Month) Bucket {
	var b Bucket
	days := daysIn(year, month)
	for d := 1; d <= days; d++ {
		b.add(byDay[DayKey(time.Date(year, month, d, 0, 0, 0, 0, time.UTC))])
	}
	return b
}

// Months rolls the year up into its 12 month buckets.
func Months(byDay map[string]Bucket, year int) []MonthBucket {
	out := make([]MonthBucket, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, MonthBucket{Month: m, Bucket: MonthOf(byDay, year, m)})
	}
	return out
}

// Weeks splits the year into consecutive 7-day runs starting January 1 and
// sums the day buckets of each run. The final week may be short.
func Weeks(byDay map[string]Bucket, year int) []WeekBucket {
	var weeks []WeekBucket
	current := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	week := 1

	for !current.After(yearEnd) {
		wb := WeekBucket{Week: week, Start: current}
		for i := 0; i < 7 && !current.After(yearEnd); i++ {
			wb.add(byDay[DayKey(current)])
			current = current.AddDate(0, 0, 1)
		}
		weeks = append(weeks, wb)
		week++
	}
	return weeks
}

// Quarters rolls the year up into Q1..Q4 with per-month detail.
func Quarters(byDay map[string]Bucket, year int) []QuarterBucket {
	quarters := make([]QuarterBucket, 0, 4)
	for q := 0; q < 4; q++ {
		qb := QuarterBucket{Quarter: q + 1}
		for i := 0; i < 3; i++ {
			month := time.Month(q*3 + i + 1)
			mb := MonthBucket{Month: month, Bucket: MonthOf(byDay, year, month)}
			qb.Months = append(qb.Months, mb)
			qb.add(mb.Bucket)
		}
		quarters = append(quarters, qb)
	}
	return quarters
}

// YearOf sums every month of the year.
func YearOf(byDay map[string]Bucket, year int) Bucket {
	var b Bucket
	for m := time.January; m <= time.December; m++ {
		b.add(MonthOf(byDay, year, m))
	}
	return b
}

// SummarizeMonth computes the daily view's header stats: the month total
// plus win-day counts. A day is a win day when its summed P&L is strictly
// positive.
func SummarizeMonth(byDay map[string]Bucket, year int, month time.Month) MonthSummary {
	s := MonthSummary{Bucket: MonthOf(byDay, year, month)}
	days := daysIn(year, month)
	for d := 1; d <= days; d++ {
		b := byDay[DayKey(time.Date(year, month, d, 0, 0, 0, 0, time.UTC))]
		if b.Count > 0 {
			s.TradingDays++
			if b.Pnl > 0 {
				s.WinDays++
			}
		}
	}
	if s.TradingDays > 0 {
		s.WinRate = int(math.Round(float64(s.WinDays) / float64(s.TradingDays) * 100))
	}
	return s
}

// MaxAbs returns the largest absolute P&L among non-empty buckets. Empty
// buckets never contribute, so an all-quiet period yields 0.
func MaxAbs(buckets []Bucket) float64 {
	var max float64
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		if abs := math.Abs(b.Pnl); abs > max {
			max = abs
		}
	}
	return max
}

// Intensity maps a bucket value onto the heat scale's opacity relative to
// the displayed set's maximum. A zero maxAbs means no activity and no
// intensity.
func Intensity(pnl, maxAbs float64) float64 {
	if maxAbs == 0 {
		return 0
	}
	ratio := math.Min(math.Abs(pnl)/maxAbs, 1)
	return minHeatAlpha + ratio*heatAlphaSpan
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
