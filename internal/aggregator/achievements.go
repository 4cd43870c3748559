package aggregator

import "github.com/j-veylop/claude-usage-analytics/internal/models"

type achievementRule struct {
	id, name, description string
	unlocked              func(r *models.UsageReport, c *models.ConversationStats) bool
}

var achievementRules = []achievementRule{
	{"first_message", "Hello, World", "Send your first message", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.AllTime.Messages >= 1
	}},
	{"chatterbox", "Chatterbox", "Send 1,000 messages", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.AllTime.Messages >= 1_000
	}},
	{"marathoner", "Marathoner", "Send 10,000 messages", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.AllTime.Messages >= 10_000
	}},
	{"polite", "Good Manners", "Say please or thanks in half your messages", func(r *models.UsageReport, c *models.ConversationStats) bool {
		return c != nil && c.UserMessages >= 10 && r.FunStats.PolitenessScore >= 50
	}},
	{"streak_7", "Week Warrior", "Use Claude 7 days in a row", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.FunStats.Streak >= 7
	}},
	{"streak_30", "Unstoppable", "Use Claude 30 days in a row", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.FunStats.Streak >= 30
	}},
	{"code_1k", "Code Machine", "Share 1,000 lines of code", func(_ *models.UsageReport, c *models.ConversationStats) bool {
		return c != nil && c.LinesOfCode >= 1_000
	}},
	{"sailor", "Sailor Mouth", "Curse 10 times", func(_ *models.UsageReport, c *models.ConversationStats) bool {
		return c != nil && c.CurseWords >= 10
	}},
	{"zen", "Zen Master", "Keep frustration under 5 across 100 messages", func(r *models.UsageReport, c *models.ConversationStats) bool {
		return c != nil && c.UserMessages >= 100 && r.FunStats.FrustrationIndex < 5
	}},
	{"cache_wizard", "Cache Wizard", "Reach an 80% cache hit ratio", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.FunStats.CacheHitRatio >= 80
	}},
	{"million_tokens", "Token Millionaire", "Process 1 million tokens", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.AllTime.Tokens >= 1_000_000
	}},
	{"billion_tokens", "Token Titan", "Process 1 billion tokens", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.AllTime.Tokens >= 1_000_000_000
	}},
	{"big_spender", "Big Spender", "Reach $100 in estimated cost", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.AllTime.Cost >= 100
	}},
	{"whale", "Whale", "Reach $1,000 in estimated cost", func(r *models.UsageReport, _ *models.ConversationStats) bool {
		return r.AllTime.Cost >= 1_000
	}},
}

// achievements evaluates every rule against a report whose other fields are final.
func achievements(r *models.UsageReport, c *models.ConversationStats) []models.Achievement {
	out := make([]models.Achievement, 0, len(achievementRules))
	for _, rule := range achievementRules {
		out = append(out, models.Achievement{
			ID:          rule.id,
			Name:        rule.name,
			Description: rule.description,
			Unlocked:    rule.unlocked(r, c),
		})
	}
	return out
}
