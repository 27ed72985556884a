package content

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	sentenceBreak = regexp.MustCompile(`[.!?]+`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Thresholds used by Assess.
const (
	mediumAbove    = 50
	longAbove      = 200
	complexAbove   = 15
	wordsPerMinute = 200
)

// sentences returns the trimmed, non-empty sentences of text.
func sentences(text string) []string {
	var out []string
	for _, s := range sentenceBreak.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Assess derives the routing characteristics of text.
func Assess(text string) (wordCount int, category, complexity string) {
	wordCount = len(strings.Fields(text))

	category = CategoryShort
	if wordCount > mediumAbove {
		category = CategoryMedium
	}
	if wordCount > longAbove {
		category = CategoryLong
	}

	avg := float64(wordCount) / float64(max(len(sentences(text)), 1))
	complexity = ComplexitySimple
	if avg > complexAbove {
		complexity = ComplexityComplex
	}
	return wordCount, category, complexity
}

// ReadingTime is the whole number of minutes needed to read wordCount words.
func ReadingTime(wordCount int) int {
	return int(math.Ceil(float64(wordCount) / wordsPerMinute))
}

// KeyPoints returns the first n sentences of text.
func KeyPoints(text string, n int) []string {
	s := sentences(text)
	return s[:min(n, len(s))]
}

// Keywords returns up to n lower-cased words longer than four characters,
// in order of appearance.
func Keywords(text string, n int) []string {
	keywords := make([]string, 0, n)
	for _, w := range whitespace.Split(strings.ToLower(text), -1) {
		if len(keywords) == n {
			break
		}
		if utf8.RuneCountInString(w) > 4 {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

// Readability scores text by average words per sentence fragment. The raw
// split counts include empty fragments, so trailing punctuation lowers the
// average.
func Readability(text string) (score int, gradeLevel string) {
	fragments := len(sentenceBreak.Split(text, -1))
	words := len(whitespace.Split(text, -1))
	raw := max(0, 100-float64(words)/float64(fragments)*3)

	switch {
	case raw > 80:
		gradeLevel = "Easy"
	case raw > 60:
		gradeLevel = "Medium"
	default:
		gradeLevel = "Hard"
	}
	return int(math.Floor(raw)), gradeLevel
}

var (
	positiveWords = []string{"good", "great", "excellent", "amazing"}
	negativeWords = []string{"bad", "terrible", "awful", "horrible"}
)

// Sentiment compares how many positive and negative marker words text
// contains.
func Sentiment(text string) string {
	lower := strings.ToLower(text)
	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}

	positive, negative := count(positiveWords), count(negativeWords)
	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	}
	return SentimentNeutral
}
