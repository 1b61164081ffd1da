package services

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// minTermLength is the shortest word kept as a required term.
const minTermLength = 3

// stopwords are Dutch and English function words never required in a match.
var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		aan al alle alles als ben bij daar dan dat de deze die dit doen door
		een en er geen had heb hebben heeft hem het hier hoe hun iets ik in is
		je jij kan kun kunnen maar me meer met mij mijn na naar niet nog nu of
		om onder ons ook op over te tegen toch tot u uit van vanaf veel voor
		waar wanneer want was wat we wel welk welke werd wie wij wil worden
		wordt zal ze zelf zich zij zijn zo zoals zou
		about above after all also and any are because been before being but
		can could did does doing for from had has have her here him his how
		into its just more most not now off once only other our out over own
		same she should some such than that the their them then there these
		they this those through too under until very was were what when where
		which while who whom why will with would you your
	`) {
		stopwords[w] = true
	}
}

// exclusionMarkers introduce a word the answer must not be about.
var exclusionMarkers = map[string]bool{
	"zonder": true, "behalve": true, "without": true, "except": true, "excluding": true,
}

var (
	phrasePattern   = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|„([^“”]+)[“”]`)
	wordPattern     = regexp.MustCompile(`-?[\p{L}\p{N}]+(?:[-'’][\p{L}\p{N}]+)*`)
	numberPattern   = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	segmentPattern  = regexp.MustCompile(`(?:^|\s)/([\p{L}\p{N}_-]+)/`)
	isoDatePattern  = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	euroDatePattern = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})\b`)
	textDatePattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([\p{L}]+)\.?\s+(\d{4})\b`)
	usDatePattern   = regexp.MustCompile(`(?i)\b([\p{L}]+)\.?\s+(\d{1,2}),?\s+(\d{4})\b`)
)

var monthNames = map[string]time.Month{
	"januari": time.January, "january": time.January, "jan": time.January,
	"februari": time.February, "february": time.February, "feb": time.February,
	"maart": time.March, "march": time.March, "mrt": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"mei": time.May, "may": time.May,
	"juni": time.June, "june": time.June, "jun": time.June,
	"juli": time.July, "july": time.July, "jul": time.July,
	"augustus": time.August, "august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"oktober": time.October, "october": time.October, "okt": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// dateMention is a calendar day named in a question.
type dateMention struct {
	raw string
	day time.Time
}

// constraints are the lexical requirements extracted from a question.
type constraints struct {
	// words holds every lower-cased word of the question, stopwords included.
	words []string

	terms      []string
	phrases    []string
	numbers    []string
	exclusions []string
	dates      []dateMention
}

// required returns phrases followed by terms.
func (c constraints) required() []string {
	out := make([]string, 0, len(c.phrases)+len(c.terms))
	out = append(out, c.phrases...)
	return append(out, c.terms...)
}

// extractConstraints tokenises question into required terms, quoted phrases,
// numeric tokens, exclusions and date mentions.
func extractConstraints(question string) constraints {
	var c constraints
	q := strings.ToLower(question)

	rest := phrasePattern.ReplaceAllStringFunc(q, func(m string) string {
		sub := phrasePattern.FindStringSubmatch(m)
		for _, p := range sub[1:] {
			if p = strings.Join(strings.Fields(p), " "); p != "" {
				c.phrases = appendUnique(c.phrases, p)
				break
			}
		}
		return " "
	})

	c.dates = extractDates(question)
	for _, n := range numberPattern.FindAllString(rest, -1) {
		if digits := digitsOnly(n); digits != "" {
			c.numbers = appendUnique(c.numbers, digits)
		}
	}

	excludeNext := false
	for _, w := range wordPattern.FindAllString(rest, -1) {
		negated := strings.HasPrefix(w, "-")
		w = strings.TrimLeft(w, "-")
		if w == "" {
			continue
		}
		c.words = append(c.words, w)

		if exclusionMarkers[w] {
			excludeNext = true
			continue
		}
		if negated || excludeNext {
			if stopwords[w] && !negated {
				continue
			}
			excludeNext = false
			c.exclusions = appendUnique(c.exclusions, w)
			continue
		}
		if utf8.RuneCountInString(w) < minTermLength || stopwords[w] || isNumeric(w) {
			continue
		}
		c.terms = appendUnique(c.terms, w)
	}

	c.terms = slices.DeleteFunc(c.terms, func(t string) bool {
		return slices.Contains(c.exclusions, t)
	})
	return c
}

// categoryHint infers a category from a /segment/ fragment or from the
// synonym table. Categories listed in priority are consulted first.
func categoryHint(question string, c constraints, synonyms map[string][]string, priority []string) string {
	if m := segmentPattern.FindStringSubmatch(strings.ToLower(question)); m != nil {
		if slug := domain.Slugify(m[1]); slug != "" {
			return slug
		}
	}

	categories := make([]string, 0, len(synonyms))
	for cat := range synonyms {
		categories = append(categories, cat)
	}
	sort.SliceStable(categories, func(i, j int) bool {
		pi, pj := priorityIndex(priority, categories[i]), priorityIndex(priority, categories[j])
		if pi != pj {
			return pi < pj
		}
		return categories[i] < categories[j]
	})

	for _, cat := range categories {
		for _, syn := range synonyms[cat] {
			if slices.Contains(c.words, strings.ToLower(syn)) {
				return cat
			}
		}
	}
	return ""
}

// priorityIndex returns the position of category in priority, or len(priority).
func priorityIndex(priority []string, category string) int {
	if i := slices.Index(priority, category); i >= 0 {
		return i
	}
	return len(priority)
}

func extractDates(question string) []dateMention {
	var out []dateMention
	add := func(raw string, y, m, d int) {
		if m < 1 || m > 12 || d < 1 || d > 31 {
			return
		}
		day := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		if day.Day() != d {
			return
		}
		out = append(out, dateMention{raw: strings.ToLower(raw), day: day})
	}

	for _, m := range isoDatePattern.FindAllStringSubmatch(question, -1) {
		add(m[0], atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	for _, m := range euroDatePattern.FindAllStringSubmatch(question, -1) {
		add(m[0], atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	for _, m := range textDatePattern.FindAllStringSubmatch(question, -1) {
		if month, ok := monthNames[strings.ToLower(m[2])]; ok {
			add(m[0], atoi(m[3]), int(month), atoi(m[1]))
		}
	}
	for _, m := range usDatePattern.FindAllStringSubmatch(question, -1) {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			add(m[0], atoi(m[3]), int(month), atoi(m[2]))
		}
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
