package nlp

import (
	"regexp"
	"strings"
)

var (
	quotedLines = regexp.MustCompile(`(?m)^>.*$`)
	urls        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emails      = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w+\b`)
	longNumbers = regexp.MustCompile(`\b\d{6,}\b`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Preprocess cleans raw email text for the statistical classifier: lower-case,
// drop quoted reply lines, URLs, addresses and long numeric tokens (ticket
// numbers would pollute the term features), strip punctuation, collapse
// whitespace and remove language-specific stopwords.
//
// The regex intent detector and the fastpath matcher must NOT consume this
// output: stopword removal destroys multi-word trigger phrases. They work on
// Fold(text) instead.
func Preprocess(text, lang string) string {
	t := strings.ToLower(text)
	t = quotedLines.ReplaceAllString(t, " ")
	t = urls.ReplaceAllString(t, " ")
	t = emails.ReplaceAllString(t, " ")
	t = longNumbers.ReplaceAllString(t, " ")
	t = punctuation.ReplaceAllString(t, " ")
	t = whitespace.ReplaceAllString(t, " ")

	stop := stopwordsFor(lang)
	var out []string
	for _, w := range strings.Fields(t) {
		if _, skip := stop[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func stopwordsFor(lang string) map[string]struct{} {
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return enStopwords
	}
	return ptStopwords
}

func stopwordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var ptStopwords = stopwordSet(
	"a", "à", "ao", "aos", "as", "às", "com", "como", "da", "das", "de",
	"dela", "dele", "deles", "demais", "depois", "do", "dos", "e", "é", "ela",
	"elas", "ele", "eles", "em", "entre", "era", "eram", "essa", "essas",
	"esse", "esses", "esta", "está", "estamos", "estão", "estas", "este",
	"estes", "eu", "foi", "for", "foram", "há", "isso", "isto", "já", "lhe",
	"mais", "mas", "me", "mesmo", "meu", "minha", "muito", "na", "não", "nas",
	"nem", "no", "nos", "nós", "nossa", "nosso", "num", "numa", "o", "os",
	"ou", "para", "pela", "pelas", "pelo", "pelos", "por", "qual", "quando",
	"que", "quem", "se", "sem", "ser", "seu", "seus", "só", "sua", "suas",
	"também", "te", "tem", "têm", "temos", "tenho", "ter", "teu", "tu", "tua",
	"um", "uma", "você", "vocês", "vos",
)

var enStopwords = stopwordSet(
	"a", "about", "after", "again", "all", "am", "an", "and", "any", "are",
	"as", "at", "be", "because", "been", "before", "being", "between", "both",
	"but", "by", "can", "could", "did", "do", "does", "doing", "down",
	"during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "he", "her", "here", "hers", "him", "his", "how", "i", "if",
	"in", "into", "is", "it", "its", "just", "me", "more", "most", "my",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or",
	"other", "our", "ours", "out", "over", "own", "same", "she", "should",
	"so", "some", "such", "than", "that", "the", "their", "theirs", "them",
	"then", "there", "these", "they", "this", "those", "through", "to", "too",
	"under", "until", "up", "very", "was", "we", "were", "what", "when",
	"where", "which", "while", "who", "whom", "why", "will", "with", "would",
	"you", "your", "yours",
)
