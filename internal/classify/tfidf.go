// Package classify holds the local statistical fallback classifier: a small
// TF-IDF + logistic-regression pipeline trained once from a seed corpus.
package classify

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// terms extracts unigram and bigram features from text.
func terms(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(words)*2)
	out = append(out, words...)
	for i := 0; i+1 < len(words); i++ {
		out = append(out, words[i]+" "+words[i+1])
	}
	return out
}

// Vectorizer maps text to L2-normalized TF-IDF vectors over a fixed
// vocabulary of unigrams and bigrams.
type Vectorizer struct {
	Vocab map[string]int `json:"vocab"`
	Terms []string       `json:"terms"`
	IDF   []float64      `json:"idf"`
}

// fitVectorizer learns the vocabulary and smoothed inverse document
// frequencies from the training documents.
func fitVectorizer(docs []string) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range terms(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	vocabTerms := make([]string, 0, len(df))
	for term := range df {
		vocabTerms = append(vocabTerms, term)
	}
	sort.Strings(vocabTerms)

	v := &Vectorizer{
		Vocab: make(map[string]int, len(vocabTerms)),
		Terms: vocabTerms,
		IDF:   make([]float64, len(vocabTerms)),
	}
	n := float64(len(docs))
	for i, term := range vocabTerms {
		v.Vocab[term] = i
		v.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// Transform converts text into a sparse TF-IDF vector.
func (v *Vectorizer) Transform(text string) map[int]float64 {
	vec := make(map[int]float64)
	for _, term := range terms(text) {
		if idx, ok := v.Vocab[term]; ok {
			vec[idx] += v.IDF[idx]
		}
	}
	var norm float64
	for _, val := range vec {
		norm += val * val
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}
