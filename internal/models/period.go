package models

// DayComposite is the per-day row of a period view. Fields are nil when the
// upstream had no record for that day.
type DayComposite struct {
	Date           string `json:"date"`
	SleepScore     *int   `json:"sleep_score"`
	ReadinessScore *int   `json:"readiness_score"`
	ActivityScore  *int   `json:"activity_score"`
	Steps          *int   `json:"steps"`
}

// Stats aggregates one metric over the days that carried a value.
type Stats struct {
	Avg   *float64 `json:"avg"`
	Min   *int     `json:"min"`
	Max   *int     `json:"max"`
	Count int      `json:"count"`
}

// NewStats computes avg/min/max/count over values. An empty slice yields
// nil aggregates and a zero count.
func NewStats(values []int) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	lo, hi, sum := values[0], values[0], 0
	for _, v := range values {
		sum += v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	avg := float64(sum) / float64(len(values))
	return Stats{Avg: &avg, Min: &lo, Max: &hi, Count: len(values)}
}

// PeriodData is the aggregate for a contiguous span of days.
type PeriodData struct {
	StartDate  string         `json:"start_date"`
	EndDate    string         `json:"end_date"`
	Days       int            `json:"days"`
	Daily      []DayComposite `json:"daily_data"`
	Sleep      Stats          `json:"sleep"`
	Readiness  Stats          `json:"readiness"`
	Activity   Stats          `json:"activity"`
	Steps      Stats          `json:"steps"`
	TotalSteps int            `json:"total_steps"`
}

// Averages is the weekly view of a period.
type Averages struct {
	Sleep     *float64 `json:"sleep"`
	Readiness *float64 `json:"readiness"`
	Activity  *float64 `json:"activity"`
	Steps     *float64 `json:"steps"`
}

func (p *PeriodData) Averages() Averages {
	return Averages{
		Sleep:     p.Sleep.Avg,
		Readiness: p.Readiness.Avg,
		Activity:  p.Activity.Avg,
		Steps:     p.Steps.Avg,
	}
}

// GoalDays counts the days whose step count reached goal.
func (p *PeriodData) GoalDays(goal int) int {
	n := 0
	for _, d := range p.Daily {
		if d.Steps != nil && *d.Steps > 0 && *d.Steps >= goal {
			n++
		}
	}
	return n
}
