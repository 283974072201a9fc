package panel

import (
	"sort"
	"strings"
)

// Quota group labels. Operators and automated checks key off the exact text.
const (
	GroupClaudeGPT       = "Claude/GPT"
	GroupGemini3Pro      = "Gemini 3 Pro"
	GroupGemini3Flash    = "Gemini 3 Flash"
	GroupGemini3ProImage = "Gemini 3 Pro Image"
	GroupGemini25        = "Gemini 2.5 Pro/Flash/Lite"
)

// groupOrder is the display order of the known groups
var groupOrder = []string{
	GroupClaudeGPT,
	GroupGemini3Pro,
	GroupGemini3Flash,
	GroupGemini3ProImage,
	GroupGemini25,
}

// GroupForModel maps a model name to its quota group label. Matching is a
// case-sensitive prefix check evaluated in priority order; the first match
// wins and everything unmatched falls into the Gemini 2.5 bucket.
func GroupForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "claude-"), strings.HasPrefix(model, "gpt-"):
		return GroupClaudeGPT
	case strings.HasPrefix(model, "gemini-3-pro-high"):
		return GroupGemini3Pro
	case strings.HasPrefix(model, "gemini-3-flash"):
		return GroupGemini3Flash
	case strings.HasPrefix(model, "gemini-3-pro-image"):
		return GroupGemini3ProImage
	default:
		return GroupGemini25
	}
}

// GroupModels folds per-model quota data into ordered display groups.
// Within a group the first model (by sorted name) that reports a remaining
// fraction or reset time supplies the group's value. Known groups come first
// in fixed order, unknown groups after, sorted by name.
func GroupModels(models map[string]ModelQuota) []QuotaGroup {
	names := make([]string, 0, len(models))
	for name := range models {
		if strings.TrimSpace(name) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	grouped := make(map[string]*QuotaGroup)
	for _, name := range names {
		label := GroupForModel(name)
		group, ok := grouped[label]
		if !ok {
			group = &QuotaGroup{Name: label}
			grouped[label] = group
		}
		group.Models = append(group.Models, name)

		mq := models[name]
		if group.RemainingFraction == nil {
			if f := effectiveFraction(mq); f != nil {
				group.RemainingFraction = f
			}
		}
		if group.ResetTime == "" {
			group.ResetTime = strings.TrimSpace(mq.ResetTime)
		}
	}

	out := make([]QuotaGroup, 0, len(grouped))
	for _, label := range groupOrder {
		if group, ok := grouped[label]; ok {
			out = append(out, *group)
			delete(grouped, label)
		}
	}

	rest := make([]string, 0, len(grouped))
	for label := range grouped {
		rest = append(rest, label)
	}
	sort.Strings(rest)
	for _, label := range rest {
		out = append(out, *grouped[label])
	}
	return out
}

// effectiveFraction normalizes a model's remaining fraction. A reported
// fraction is clamped to [0, 1]. A reset time with no fraction means the
// quota is exhausted, so the fraction reads as zero.
func effectiveFraction(mq ModelQuota) *float64 {
	if mq.RemainingFraction != nil {
		f := *mq.RemainingFraction
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		return &f
	}
	if strings.TrimSpace(mq.ResetTime) != "" {
		zero := 0.0
		return &zero
	}
	return nil
}
