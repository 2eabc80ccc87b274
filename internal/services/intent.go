package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/pkg/logger"
)

type Intent string

const (
	IntentSleep         Intent = "sleep"
	IntentReadiness     Intent = "readiness"
	IntentSteps         Intent = "steps"
	IntentActivity      Intent = "activity"
	IntentReportMorning Intent = "report_morning"
	IntentReportNoon    Intent = "report_noon"
	IntentReportNight   Intent = "report_night"
	IntentSetGoal       Intent = "set_goal"
	IntentAdvice        Intent = "advice"
	IntentHelp          Intent = "help"
)

type intentPattern struct {
	re     *regexp.Regexp
	intent Intent
}

func pattern(expr string, intent Intent) intentPattern {
	return intentPattern{re: regexp.MustCompile(expr), intent: intent}
}

// intentPatterns is matched in order against lowercased text; the first
// match wins.
var intentPatterns = []intentPattern{
	pattern(`(睡眠|スリープ|ねむ|眠り|寝).*(スコア|点|どう|は[？?])`, IntentSleep),
	pattern(`(昨日|きのう|前日).*(睡眠|寝)`, IntentSleep),
	pattern(`よく(眠|寝)れた`, IntentSleep),

	pattern(`(レディネス|readiness|準備|準備度|コンディション)`, IntentReadiness),
	pattern(`(調子|体調).*(どう|は[？?])`, IntentReadiness),

	pattern(`(歩数|ほすう|あるい|歩い).*(何歩|どれくらい|どう|は[？?])`, IntentSteps),
	pattern(`(今日|きょう)の?(歩数|あるい)`, IntentSteps),
	pattern(`(活動|アクティビティ)`, IntentActivity),

	pattern(`(朝|モーニング).*(レポート|報告|通知|送)`, IntentReportMorning),
	pattern(`(昼|ランチ|noon).*(レポート|報告|通知|送)`, IntentReportNoon),
	pattern(`(夜|ナイト|night).*(レポート|報告|通知|送)`, IntentReportNight),
	pattern(`レポート.*(送|見せ|教え)`, IntentReportMorning),

	pattern(`(歩数|ステップ).*目標.*(\d+)`, IntentSetGoal),
	pattern(`目標.*(\d+).*(歩|ステップ)`, IntentSetGoal),

	pattern(`(今日|きょう).*(どう|アドバイス|何).*(すれば|したら|いい)`, IntentAdvice),
	pattern(`(おすすめ|オススメ|推奨|アドバイス)`, IntentAdvice),
	pattern(`どうすればいい`, IntentAdvice),

	pattern(`(ヘルプ|help|使い方|できること)`, IntentHelp),

	pattern(`\bsteps?\b.*\bgoal\b.*\d+|\bgoal\b.*\d+.*\bsteps?\b`, IntentSetGoal),
	pattern(`\bsleep\b`, IntentSleep),
	pattern(`\bsteps?\b`, IntentSteps),
	pattern(`\badvice\b|what should i do`, IntentAdvice),
}

var (
	mentionRe = regexp.MustCompile(`<@!?\d+>`)
	numberRe  = regexp.MustCompile(`\d+`)
)

const (
	greetingText = ":wave: Hi! I'm the Oura bot.\n" +
		"Ask me things like \"睡眠スコアは？\" or \"how did I sleep\".\n" +
		"Use `/help` to see every command."
	fallbackText = ":thinking: Sorry, I didn't get that.\n" +
		"Use `/help` to see every command.\n\n" +
		"Try: \"睡眠スコアは？\", \"今日の歩数\" or \"アドバイスちょうだい\""
	nlHelpText = ":book: **How to talk to me**\n\n" +
		"**Data**\n• 睡眠スコアは？\n• 今日の歩数\n• コンディションどう？\n\n" +
		"**Reports**\n• 朝レポート送って\n• 夜レポート見せて\n\n" +
		"**Settings**\n• 目標を10000歩にして\n\n" +
		"**Advice**\n• 今日どうすればいい？\n\n" +
		"Slash commands work too: `/help`"
)

// normalizeMessage drops user mentions and folds full-width letters and
// digits to ASCII.
func normalizeMessage(text string) string {
	text = mentionRe.ReplaceAllString(text, "")
	return strings.TrimSpace(width.Fold.String(text))
}

// MatchIntent returns the first intent whose pattern matches text.
func MatchIntent(text string) (Intent, bool) {
	lower := strings.ToLower(normalizeMessage(text))
	for _, p := range intentPatterns {
		if p.re.MatchString(lower) {
			return p.intent, true
		}
	}
	return "", false
}

// HandleMessage answers a free-text message. It never fails: errors become
// ":x:" replies.
func (d *Dispatcher) HandleMessage(ctx context.Context, text string) models.Reply {
	text = normalizeMessage(text)
	if text == "" {
		return models.TextReply(greetingText)
	}

	intent, ok := MatchIntent(text)
	if !ok {
		return models.TextReply(fallbackText)
	}
	logger.Debug().Str("intent", string(intent)).Msg("[Command] message matched")

	reply, err := d.handleIntent(ctx, intent, text)
	if err != nil {
		return errorReply(err)
	}
	return reply
}

func (d *Dispatcher) handleIntent(ctx context.Context, intent Intent, text string) (models.Reply, error) {
	today := d.today()

	switch intent {
	case IntentSleep:
		sleep, err := d.source.GetSleep(ctx, today)
		if err != nil {
			return models.Reply{}, err
		}
		if sleep == nil {
			return warning("No sleep data available"), nil
		}
		detail, err := d.source.GetSleepDetail(ctx, today)
		if err != nil {
			return models.Reply{}, err
		}
		return models.SectionReply("", SleepSection(sleep, detail, Annotations{}, d.loc)), nil

	case IntentReadiness:
		r, err := d.source.GetReadiness(ctx, today)
		if err != nil {
			return models.Reply{}, err
		}
		if r == nil {
			return warning("No readiness data available"), nil
		}
		return models.SectionReply("", ReadinessSection(r, Annotations{})), nil

	case IntentSteps:
		a, err := d.source.GetActivity(ctx, today)
		if err != nil {
			return models.Reply{}, err
		}
		if a == nil {
			return warning("No activity data for today yet"), nil
		}
		steps, goal := models.IntOr(a.Steps, 0), d.settings.StepsGoal()
		percent := 0.0
		if goal > 0 {
			percent = float64(steps) / float64(goal) * 100
		}
		return models.TextReply(fmt.Sprintf(":footprints: Today's steps: **%s** / %s steps (%.0f%%)",
			FormatNumber(steps), FormatNumber(goal), percent)), nil

	case IntentActivity:
		a, err := d.source.GetActivity(ctx, today)
		if err != nil {
			return models.Reply{}, err
		}
		if a == nil {
			return warning("No activity data for today yet"), nil
		}
		score := models.IntOr(a.Score, 0)
		return models.TextReply(fmt.Sprintf(":running: Activity score: **%d** %s\n:footprints: Steps: %s steps",
			score, ScoreEmoji(score), FormatNumber(models.IntOr(a.Steps, 0)))), nil

	case IntentReportMorning, IntentReportNoon, IntentReportNight:
		kind := strings.TrimPrefix(string(intent), "report_")
		return d.report(ctx, Command{Name: "report", Options: map[string]string{"type": kind}})

	case IntentSetGoal:
		numbers := numberRe.FindAllString(text, -1)
		if len(numbers) == 0 {
			return models.TextReply(":x: Tell me the steps goal as a number"), nil
		}
		goal, err := strconv.Atoi(numbers[len(numbers)-1])
		if err != nil {
			return models.Reply{}, ErrGoalOutOfRange
		}
		return d.setGoal(goal)

	case IntentAdvice:
		return d.advice(ctx, Command{Name: "advice"})

	case IntentHelp:
		return models.TextReply(nlHelpText), nil
	}
	return models.TextReply(fallbackText), nil
}
