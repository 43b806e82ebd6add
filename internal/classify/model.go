package classify

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/store"
	"mail-triage/backend/internal/util"
)

// snapshotName keys the persisted pipeline in the store.
const snapshotName = "email-triage-tfidf-logreg"

// maxTopFeatures caps the explainability term list.
const maxTopFeatures = 6

// pipeline is the serializable trained state. The positive class is
// Produtivo; Improdutivo is the complement.
type pipeline struct {
	Vectorizer *Vectorizer `json:"vectorizer"`
	Weights    []float64   `json:"weights"`
	Bias       float64     `json:"bias"`
}

// Prediction is the local classifier output: the arg-max category, its
// probability and the top positively-weighted terms present in the input.
type Prediction struct {
	Category    label.Category
	Probability float64
	TopFeatures []string
}

// Model lazily loads or trains the pipeline on first use and serves
// predictions for the life of the process. Safe for concurrent use once
// initialized; initialization is guarded against duplicate training.
type Model struct {
	db *store.Database

	once sync.Once
	pipe *pipeline
	err  error
}

// NewModel binds a model to its persistence store. db may be nil; the model
// then trains in memory on every process start.
func NewModel(db *store.Database) *Model {
	return &Model{db: db}
}

func (m *Model) ensure() (*pipeline, error) {
	m.once.Do(func() {
		if m.db != nil {
			snapshot, err := m.db.LoadSnapshot(snapshotName)
			if err != nil {
				logrus.WithError(err).Warn("load model snapshot")
			} else if snapshot != nil {
				var pipe pipeline
				if err := json.Unmarshal(snapshot.Payload, &pipe); err == nil && pipe.Vectorizer != nil {
					m.pipe = &pipe
					return
				}
				logrus.Warn("model snapshot unreadable, retraining")
			}
		}

		timer := util.StartTimer()
		m.pipe = trainFromSeed()
		logrus.WithField("ms", timer.ElapsedMs()).Info("trained local classifier from seed corpus")

		if m.db != nil {
			payload, err := json.Marshal(m.pipe)
			if err != nil {
				logrus.WithError(err).Warn("marshal model snapshot")
				return
			}
			if err := m.db.SaveSnapshot(&store.ModelSnapshot{
				Name:      snapshotName,
				Payload:   payload,
				TrainedAt: time.Now().UTC(),
			}); err != nil {
				logrus.WithError(err).Warn("persist model snapshot")
			}
		}
	})
	if m.err != nil {
		return nil, m.err
	}
	return m.pipe, nil
}

func trainFromSeed() *pipeline {
	docs := make([]string, len(seedCorpus))
	targets := make([]int, len(seedCorpus))
	for i, ex := range seedCorpus {
		docs[i] = ex.text
		if ex.category == label.Productive {
			targets[i] = 1
		}
	}

	vectorizer := fitVectorizer(docs)
	features := make([]map[int]float64, len(docs))
	for i, doc := range docs {
		features[i] = vectorizer.Transform(doc)
	}
	weights, bias := trainLogistic(features, targets, len(vectorizer.Terms))

	return &pipeline{Vectorizer: vectorizer, Weights: weights, Bias: bias}
}

// Predict classifies preprocessed text and explains the decision with up to
// six positively-weighted vocabulary terms present in the input.
func (m *Model) Predict(cleanText string) (Prediction, error) {
	pipe, err := m.ensure()
	if err != nil {
		return Prediction{}, fmt.Errorf("local classifier: %w", err)
	}

	vec := pipe.Vectorizer.Transform(cleanText)
	z := pipe.Bias
	for idx, val := range vec {
		z += pipe.Weights[idx] * val
	}
	pProductive := sigmoid(z)

	winner := label.Productive
	probability := pProductive
	if pProductive < 0.5 {
		winner = label.Unproductive
		probability = 1 - pProductive
	}

	type weighted struct {
		term   string
		weight float64
	}
	var present []weighted
	for idx := range vec {
		coef := pipe.Weights[idx]
		if winner == label.Unproductive {
			coef = -coef
		}
		if coef > 0 {
			present = append(present, weighted{term: pipe.Vectorizer.Terms[idx], weight: coef})
		}
	}
	sort.Slice(present, func(i, j int) bool {
		if present[i].weight != present[j].weight {
			return present[i].weight > present[j].weight
		}
		return present[i].term < present[j].term
	})
	top := make([]string, 0, maxTopFeatures)
	for _, w := range present {
		if len(top) == maxTopFeatures {
			break
		}
		top = append(top, w.term)
	}

	return Prediction{Category: winner, Probability: probability, TopFeatures: top}, nil
}
