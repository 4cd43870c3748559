package scanner

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

var curseWords = map[string]bool{
	"damn": true, "hell": true, "crap": true, "shit": true, "fuck": true,
	"ass": true, "bastard": true, "bitch": true, "wtf": true,
}

var frustrationWords = map[string]bool{
	"frustrated": true, "annoying": true, "broken": true, "stupid": true,
	"hate": true, "ugh": true, "argh": true, "wtf": true,
}

var (
	pleaseRe  = regexp.MustCompile(`\b(please|pls|plz)\b`)
	thanksRe  = regexp.MustCompile(`\b(thanks|thank you|thx|ty)\b`)
	sorryRe   = regexp.MustCompile(`\b(sorry|apologies|my bad)\b`)
	politeRe  = regexp.MustCompile(`\b(could you|would you|would you mind|if you don't mind|i appreciate|much appreciated)\b`)
	lolRe     = regexp.MustCompile(`\b(lol|lmao|rofl|haha+)\b`)
	codeFence = regexp.MustCompile("(?s)```([^\\n`]*)\\n(.*?)```")
)

var sentimentRules = []struct {
	re  *regexp.Regexp
	inc func(*models.SentimentCounts)
}{
	{regexp.MustCompile(`\b(great|awesome|perfect|nice|excellent|love|amazing|brilliant|good job|well done)\b`),
		func(s *models.SentimentCounts) { s.Positive++ }},
	{regexp.MustCompile(`\b(wrong|bad|terrible|awful|horrible|useless|doesn't work|not working|still failing)\b`),
		func(s *models.SentimentCounts) { s.Negative++ }},
	{regexp.MustCompile(`\b(asap|urgent|urgently|immediately|right now|hurry|critical|quickly)\b`),
		func(s *models.SentimentCounts) { s.Urgent++ }},
	{regexp.MustCompile(`\b(confused|confusing|don't understand|what do you mean|unclear|huh|makes no sense)\b`),
		func(s *models.SentimentCounts) { s.Confused++ }},
}

var requestRules = []struct {
	re  *regexp.Regexp
	inc func(*models.RequestCounts)
}{
	{regexp.MustCompile(`\b(fix|bug|bugs|debug|crash|crashes|error|errors|issue)\b`),
		func(r *models.RequestCounts) { r.BugFix++ }},
	{regexp.MustCompile(`\b(add|implement|create|build|new feature|support for)\b`),
		func(r *models.RequestCounts) { r.Feature++ }},
	{regexp.MustCompile(`\b(refactor|refactoring|clean up|cleanup|restructure|simplify|reorganize)\b`),
		func(r *models.RequestCounts) { r.Refactor++ }},
	{regexp.MustCompile(`\b(explain|what is|what does|how does|why does|walk me through)\b`),
		func(r *models.RequestCounts) { r.Explain++ }},
	{regexp.MustCompile(`\b(test|tests|testing|unit test|coverage)\b`),
		func(r *models.RequestCounts) { r.Test++ }},
	{regexp.MustCompile(`\b(review|code review|look over|audit)\b`),
		func(r *models.RequestCounts) { r.Review++ }},
}

// classify adds one user message to stats. Buckets are independent:
// a single message may increment several of them.
func classify(stats *models.ConversationStats, text string) {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)

	stats.UserMessages++
	stats.TotalWords += len(words)
	stats.TotalChars += len([]rune(text))
	stats.LongestMessageWords = max(stats.LongestMessageWords, len(words))

	if strings.Contains(text, "?") {
		stats.Questions++
	}
	if strings.Contains(text, "!") {
		stats.Exclamations++
	}

	for _, w := range words {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if curseWords[w] {
			stats.CurseWords++
		}
		if frustrationWords[w] {
			stats.FrustrationWords++
		}
	}

	if pleaseRe.MatchString(lower) {
		stats.PleaseCount++
	}
	if thanksRe.MatchString(lower) {
		stats.ThanksCount++
	}
	if sorryRe.MatchString(lower) {
		stats.SorryCount++
	}
	if politeRe.MatchString(lower) {
		stats.PolitePhrases++
	}
	stats.LolCount += len(lolRe.FindAllString(lower, -1))

	if isCapsRage(text) {
		stats.CapsRage++
	}

	for _, rule := range sentimentRules {
		if rule.re.MatchString(lower) {
			rule.inc(&stats.Sentiment)
		}
	}
	for _, rule := range requestRules {
		if rule.re.MatchString(lower) {
			rule.inc(&stats.Requests)
		}
	}

	countCodeBlocks(stats, text)
}

// isCapsRage reports whether more than half of at least ten letters are upper case.
func isCapsRage(text string) bool {
	var letters, upper int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return letters >= 10 && upper*2 > letters
}

func countCodeBlocks(stats *models.ConversationStats, text string) {
	for _, m := range codeFence.FindAllStringSubmatch(text, -1) {
		lang := strings.ToLower(strings.TrimSpace(m[1]))
		if i := strings.IndexAny(lang, " \t{"); i >= 0 {
			lang = lang[:i]
		}
		if lang == "" {
			lang = "text"
		}

		stats.CodeBlocks++
		stats.CodeBlocksByLanguage[lang]++

		body := strings.TrimRight(m[2], "\n")
		if body != "" {
			stats.LinesOfCode += strings.Count(body, "\n") + 1
		}
	}
}
