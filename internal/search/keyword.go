package search

import (
	"math"
	"strings"
	"unicode"
)

// BM25 parameters, standard defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// keywordScores computes BM25 scores for the query against each candidate
// text, normalized to [0,1] by the highest score. Document frequencies are
// taken over the candidate set itself, which is small (at most the query
// over-fetch), so scoring stays cheap and needs no corpus-wide state.
func keywordScores(query string, texts []string) []float64 {
	scores := make([]float64, len(texts))

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || len(texts) == 0 {
		return scores
	}

	docs := make([]map[string]int, len(texts))
	lengths := make([]int, len(texts))
	totalLen := 0
	df := make(map[string]int)

	for i, text := range texts {
		terms := tokenize(text)
		freq := make(map[string]int, len(terms))
		for _, t := range terms {
			freq[t]++
		}
		docs[i] = freq
		lengths[i] = len(terms)
		totalLen += len(terms)
		for t := range freq {
			df[t]++
		}
	}

	avgLen := float64(totalLen) / float64(len(texts))
	if avgLen == 0 {
		return scores
	}

	n := float64(len(texts))
	maxScore := 0.0
	for i := range texts {
		var score float64
		for _, term := range queryTerms {
			tf := float64(docs[i][term])
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(lengths[i])/avgLen))
			score += idf * norm
		}
		scores[i] = score
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}
	return scores
}

// tokenize lowercases and splits on anything that is not a letter or
// digit. Works for both alphabetic and Hangul text.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
