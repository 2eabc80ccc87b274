package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/internal/services/oura"
)

var errUpstream = errors.New("oura: status 503")

// fakeSource serves records keyed by ISO day.
type fakeSource struct {
	mu        sync.Mutex
	sleep     map[string]models.DailySleep
	readiness map[string]models.DailyReadiness
	activity  map[string]models.DailyActivity
	details   map[string]models.SleepDetail
	workouts  map[string][]models.Workout
	stress    map[string]models.DailyStress

	err       error
	weeklyErr error
	calls     []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		sleep:     map[string]models.DailySleep{},
		readiness: map[string]models.DailyReadiness{},
		activity:  map[string]models.DailyActivity{},
		details:   map[string]models.SleepDetail{},
		workouts:  map[string][]models.Workout{},
		stress:    map[string]models.DailyStress{},
	}
}

func (f *fakeSource) record(call string, day time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := day.Format(models.DateLayout)
	f.calls = append(f.calls, call+" "+key)
	return key, f.err
}

func (f *fakeSource) addSleep(day string, score int) {
	f.sleep[day] = models.DailySleep{Day: day, Score: models.Int(score)}
}

func (f *fakeSource) addReadiness(day string, score int) {
	f.readiness[day] = models.DailyReadiness{Day: day, Score: models.Int(score)}
}

func (f *fakeSource) addActivity(day string, score, steps int) {
	f.activity[day] = models.DailyActivity{Day: day, Score: models.Int(score), Steps: models.Int(steps), ActiveCalories: models.Int(350)}
}

func (f *fakeSource) GetSleep(_ context.Context, day time.Time) (*models.DailySleep, error) {
	key, err := f.record("sleep", day)
	if err != nil {
		return nil, err
	}
	if v, ok := f.sleep[key]; ok {
		return &v, nil
	}
	return nil, nil
}

func (f *fakeSource) GetReadiness(_ context.Context, day time.Time) (*models.DailyReadiness, error) {
	key, err := f.record("readiness", day)
	if err != nil {
		return nil, err
	}
	if v, ok := f.readiness[key]; ok {
		return &v, nil
	}
	return nil, nil
}

func (f *fakeSource) GetActivity(_ context.Context, day time.Time) (*models.DailyActivity, error) {
	key, err := f.record("activity", day)
	if err != nil {
		return nil, err
	}
	if v, ok := f.activity[key]; ok {
		return &v, nil
	}
	return nil, nil
}

func (f *fakeSource) GetSleepDetail(_ context.Context, day time.Time) (*models.SleepDetail, error) {
	key, err := f.record("detail", day)
	if err != nil {
		return nil, err
	}
	if v, ok := f.details[key]; ok {
		return &v, nil
	}
	return nil, nil
}

// GetDailyStress reports upstream failures as absent data, like the client.
func (f *fakeSource) GetDailyStress(_ context.Context, day time.Time) *models.DailyStress {
	key, err := f.record("stress", day)
	if err != nil {
		return nil
	}
	if v, ok := f.stress[key]; ok {
		return &v
	}
	return nil
}

func (f *fakeSource) GetWorkouts(_ context.Context, day time.Time) ([]models.Workout, error) {
	key, err := f.record("workouts", day)
	if err != nil {
		return nil, err
	}
	return f.workouts[key], nil
}

func inRange(key string, start, end time.Time) bool {
	return key >= start.Format(models.DateLayout) && key <= end.Format(models.DateLayout)
}

func (f *fakeSource) GetSleepRange(_ context.Context, start, end time.Time) (map[string]models.DailySleep, error) {
	if _, err := f.record("sleep_range", start); err != nil {
		return nil, err
	}
	out := map[string]models.DailySleep{}
	for k, v := range f.sleep {
		if inRange(k, start, end) {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeSource) GetSleepDetailRange(_ context.Context, start, end time.Time) (map[string]models.SleepDetail, error) {
	if _, err := f.record("detail_range", start); err != nil {
		return nil, err
	}
	out := map[string]models.SleepDetail{}
	for k, v := range f.details {
		if inRange(k, start, end) {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeSource) period(start, end time.Time) *models.PeriodData {
	return oura.AssemblePeriod(start, end, f.sleep, f.readiness, f.activity)
}

func (f *fakeSource) GetWeekly(_ context.Context, end time.Time) (*models.PeriodData, error) {
	if _, err := f.record("weekly", end); err != nil {
		return nil, err
	}
	if f.weeklyErr != nil {
		return nil, f.weeklyErr
	}
	return f.period(end.AddDate(0, 0, -6), end), nil
}

func (f *fakeSource) GetMonthly(_ context.Context, end time.Time, days int) (*models.PeriodData, error) {
	if _, err := f.record("monthly", end); err != nil {
		return nil, err
	}
	return f.period(end.AddDate(0, 0, -(days-1)), end), nil
}

type sentReport struct {
	Title    string
	Sections []models.Section
}

type channelPost struct {
	ChannelID *models.ChannelID
	Reply     models.Reply
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	reports  []sentReport
	posts    []channelPost

	err          error
	panicOn      string
	failMessages bool
}

func (n *fakeNotifier) SendMessage(_ context.Context, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, content)
	if n.failMessages {
		return errors.New("webhook down")
	}
	return nil
}

func (n *fakeNotifier) SendHealthReport(_ context.Context, title string, sections []models.Section) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, sentReport{Title: title, Sections: sections})
	return n.err
}

func (n *fakeNotifier) SendToChannel(_ context.Context, channelID *models.ChannelID, reply models.Reply) error {
	if n.panicOn != "" && strings.Contains(reply.Content, n.panicOn) {
		panic("discord client exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.posts = append(n.posts, channelPost{ChannelID: channelID, Reply: reply})
	return n.err
}
