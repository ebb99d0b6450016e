// Package stats computes and renders per-trial metrics.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/keytrial/internal/model"
	"github.com/verte-zerg/keytrial/internal/sound"
)

const sparkChars = " .:-=+*#%@"

// TrialMetrics summarizes one trial.
type TrialMetrics struct {
	Keystrokes int
	Matched    int
	Mismatched int
	MatchRate  float64
	WPM        float64
	CPM        float64
	DurationMs float64
	// Conditions counts keystrokes per sound condition, indexed by its value.
	Conditions     [3]int
	Intervals      []float64
	MeanIntervalMs float64
}

// SessionMetrics computes WPM, CPM, and accuracy from character counts.
func SessionMetrics(correct, incorrect int, durationMs float64) (wpm, cpm, accuracy float64) {
	if durationMs <= 0 {
		return 0, 0, 0
	}
	minutes := durationMs / 60000.0
	wpm = (float64(correct) / 5.0) / minutes
	cpm = float64(correct) / minutes
	den := float64(correct + incorrect)
	if den > 0 {
		accuracy = float64(correct) / den
	}
	return wpm, cpm, accuracy
}

// Compute derives metrics from a trial result. The duration is the reaction
// time, or the last keystroke offset when the trial has none.
func Compute(res model.TrialResult) TrialMetrics {
	m := TrialMetrics{Keystrokes: len(res.Keystrokes)}
	prev := 0.0
	for i, k := range res.Keystrokes {
		if k.Matched {
			m.Matched++
		} else {
			m.Mismatched++
		}
		if c := int(k.Condition); c >= 0 && c < len(m.Conditions) {
			m.Conditions[c]++
		}
		if i > 0 {
			m.Intervals = append(m.Intervals, k.OffsetMs-prev)
		}
		prev = k.OffsetMs
	}
	if res.ReactionTimeMs != nil {
		m.DurationMs = *res.ReactionTimeMs
	} else if m.Keystrokes > 0 {
		m.DurationMs = res.Keystrokes[m.Keystrokes-1].OffsetMs
	}
	m.WPM, m.CPM, m.MatchRate = SessionMetrics(m.Matched, m.Mismatched, m.DurationMs)
	if m.DurationMs <= 0 && m.Keystrokes > 0 {
		m.MatchRate = float64(m.Matched) / float64(m.Keystrokes)
	}
	if len(m.Intervals) > 0 {
		sum := 0.0
		for _, v := range m.Intervals {
			sum += v
		}
		m.MeanIntervalMs = sum / float64(len(m.Intervals))
	}
	return m
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderTrialSummary prints the outcome and metrics of one trial.
func RenderTrialSummary(w io.Writer, res model.TrialResult) error {
	if res.EndReason == model.EndMissingText {
		_, err := fmt.Fprintln(w, "Trial not run: no target text was configured.")
		return err
	}
	m := Compute(res)
	reaction := "-"
	if res.ReactionTimeMs != nil {
		reaction = fmt.Sprintf("%.0f ms", *res.ReactionTimeMs)
	}
	rows := [][]string{
		{"Result", string(res.EndReason)},
		{"Target", res.TargetText},
		{"Typed", res.UserInput},
		{"Accurate", yesNo(res.Accuracy)},
		{"Had errors", yesNo(res.HadErrors)},
		{"Reaction time", reaction},
		{"WPM", fmt.Sprintf("%.1f", m.WPM)},
		{"CPM", fmt.Sprintf("%.1f", m.CPM)},
		{"Match rate", fmt.Sprintf("%.2f%%", m.MatchRate*100)},
		{"Mean interval", fmt.Sprintf("%.1f ms", m.MeanIntervalMs)},
		{"Sound mode", sound.Describe(res.SoundMode)},
		{"Sound", fmt.Sprintf("immediate %d, delayed %d, none %d",
			m.Conditions[model.ConditionImmediate],
			m.Conditions[model.ConditionDelayed],
			m.Conditions[model.ConditionNone])},
	}
	if res.IsRealSentence != nil {
		rows = append(rows, []string{"Real sentence", yesNo(*res.IsRealSentence)})
	}
	if len(m.Intervals) > 1 {
		rows = append(rows, []string{"Rhythm", Sparkline(m.Intervals)})
	}
	for _, line := range formatTable(nil, rows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrialList prints recorded trials, one per row.
func RenderTrialList(w io.Writer, trials []model.TrialSummary) error {
	if len(trials) == 0 {
		_, err := fmt.Fprintln(w, "No trials found.")
		return err
	}
	headers := []string{"ID", "Started", "Result", "Mode", "Policy", "Keys", "RT (ms)", "Accurate", "Target"}
	rows := make([][]string, 0, len(trials))
	for _, t := range trials {
		rt := "-"
		if t.ReactionTimeMs != nil {
			rt = fmt.Sprintf("%.0f", *t.ReactionTimeMs)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.ID),
			t.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(t.EndReason),
			t.SoundMode.String(),
			string(t.MatchPolicy),
			fmt.Sprintf("%d", t.Keystrokes),
			rt,
			yesNo(t.Accuracy),
			t.TargetText,
		})
	}
	rightAlign := map[int]bool{0: true, 5: true, 6: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// RenderKeystrokes prints the keystroke log of one trial.
func RenderKeystrokes(w io.Writer, keys []model.KeystrokeEvent) error {
	if len(keys) == 0 {
		_, err := fmt.Fprintln(w, "No keystrokes recorded.")
		return err
	}
	headers := []string{"#", "Key", "Time (ms)", "Matched", "Sound"}
	rows := make([][]string, 0, len(keys))
	for i, k := range keys {
		key := k.Key
		if key == " " {
			key = "<space>"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			key,
			fmt.Sprintf("%.1f", k.OffsetMs),
			yesNo(k.Matched),
			k.Condition.String(),
		})
	}
	rightAlign := map[int]bool{0: true, 2: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
