package services

import (
	"fmt"
	"strings"
)

// AdviceInput holds the optional metrics advice is derived from.
type AdviceInput struct {
	Readiness *int
	Sleep     *int
	Activity  *int
	Steps     *int
	StepsGoal int
}

const defaultAdvice = ":sparkles: **No issues**\n" +
	"You're living healthily today!\n" +
	"Keep this balance going."

// GenerateAdvice evaluates every metric on its own and joins all blocks
// that apply. With no applicable block the "no issues" text is returned.
func GenerateAdvice(in AdviceInput) string {
	var parts []string

	if in.Readiness != nil {
		parts = append(parts, readinessAdvice(*in.Readiness))
	}
	if in.Sleep != nil {
		if s := sleepAdvice(*in.Sleep); s != "" {
			parts = append(parts, s)
		}
	}
	if in.Steps != nil && in.StepsGoal > 0 {
		if s := stepsAdvice(*in.Steps, in.StepsGoal); s != "" {
			parts = append(parts, s)
		}
	}
	if in.Activity != nil {
		if s := activityAdvice(*in.Activity, in.Steps, in.StepsGoal); s != "" {
			parts = append(parts, s)
		}
	}

	if len(parts) == 0 {
		return defaultAdvice
	}
	return strings.Join(parts, "\n\n")
}

func readinessAdvice(score int) string {
	switch {
	case score >= 85:
		return ":fire: **Excellent condition!**\n" +
			"A great day to be active.\n" +
			"Ideal for workouts or important tasks."
	case score >= 70:
		return ":thumbsup: **In good shape**\n" +
			"Keep to your usual pace.\n" +
			"Aim for moderate activity and a balanced day."
	case score >= 60:
		return ":warning: **A little tired**\n" +
			"Take it easy and rest when you can.\n" +
			"Skip intense exercise."
	default:
		return ":battery: **Prioritize recovery**\n" +
			"Consider making today a rest day.\n" +
			"Go to bed early and stay hydrated."
	}
}

func sleepAdvice(score int) string {
	switch {
	case score < 60:
		return ":zzz: **Your sleep is insufficient**\n" +
			"Go to bed early tonight (target: 22:30).\n" +
			"Cut back on caffeine after 2 pm."
	case score < 70:
		return ":bed: **Sleep score is on the low side**\n" +
			"Try going to bed 30 minutes earlier than usual.\n" +
			"Put your phone away before bed."
	}
	return ""
}

func stepsAdvice(steps, goal int) string {
	progress := float64(steps) / float64(goal)
	switch {
	case progress >= 1:
		return fmt.Sprintf(":star2: **Steps goal achieved!**\n"+
			"Well done, you walked %s steps.\n"+
			"Keep it up.", FormatNumber(steps))
	case progress >= 0.7:
		return fmt.Sprintf(":walking: **Almost at your steps goal**\n"+
			"Only %s steps to go!\n"+
			"An evening walk should do it.", FormatNumber(goal-steps))
	case progress < 0.3:
		return fmt.Sprintf(":footprints: **Steps are on the low side**\n"+
			"Currently %s / goal %s steps\n"+
			"Try taking the stairs or walking one extra stop.", FormatNumber(steps), FormatNumber(goal))
	}
	return ""
}

func activityAdvice(score int, steps *int, goal int) string {
	if score >= 85 {
		return ":muscle: **Plenty of activity**\n" +
			"Your exercise is on track today. Remember to rest too."
	}
	lowSteps := steps == nil || (goal > 0 && float64(*steps)/float64(goal) < 0.5)
	if score < 50 && lowSteps {
		return ":couch_and_lamp: **Low activity**\n" +
			"Lots of desk work today?\n" +
			"Stand up at least once an hour."
	}
	return ""
}

// QuickTip is a one-line hint keyed on readiness.
func QuickTip(readiness *int) string {
	if readiness == nil {
		return "Have a good day!"
	}
	switch r := *readiness; {
	case r >= 85:
		return "In top form! Make today count."
	case r >= 70:
		return "Looking fine. Have a balanced day."
	case r >= 60:
		return "A bit tired. Don't overdo it."
	default:
		return "Recovery first. Rest early."
	}
}
