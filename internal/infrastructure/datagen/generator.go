// Package datagen produces synthetic bank customers for demos and tests.
package datagen

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// Generator draws customers from fixed attribute ranges. The same seed always
// yields the same customers, identifiers included.
type Generator struct {
	seed uint64
}

// NewGenerator creates a seeded generator.
func NewGenerator(seed uint64) *Generator {
	return &Generator{seed: seed}
}

// Generate returns n customers of which exactly round(n*churnRate) churn.
// Churners are drawn with weights that favour inactive, low-credit,
// short-tenure customers so the data carries a learnable signal.
func (g *Generator) Generate(n int, churnRate float64) ([]model.CustomerRecord, error) {
	if n <= 0 {
		return nil, fmt.Errorf("datagen: record count must be positive, got %d", n)
	}
	if churnRate < 0 || churnRate > 1 || math.IsNaN(churnRate) {
		return nil, fmt.Errorf("datagen: churn rate %v outside [0,1]", churnRate)
	}

	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], g.seed)
	src := rand.NewChaCha8(key)
	rng := rand.New(src)

	records := make([]model.CustomerRecord, n)
	for i := range records {
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			return nil, fmt.Errorf("datagen: customer id: %w", err)
		}
		records[i] = model.CustomerRecord{
			CustomerID:     id.String(),
			Age:            18 + rng.IntN(62),
			Balance:        round2(100 + rng.Float64()*99900),
			Transactions:   1 + rng.IntN(499),
			CreditScore:    300 + rng.IntN(550),
			Tenure:         1 + rng.IntN(29),
			Income:         round2(20000 + rng.Float64()*180000),
			NumProducts:    1 + rng.IntN(4),
			HasCreditCard:  rng.IntN(2) == 1,
			IsActiveMember: rng.IntN(2) == 1,
		}
	}

	for _, i := range weightedSample(records, int(math.Round(float64(n)*churnRate)), rng) {
		records[i].Churn = true
	}
	return records, nil
}

// churnWeight scores how likely a customer is to be drawn as a churner.
func churnWeight(r model.CustomerRecord) float64 {
	w := 1.0
	if !r.IsActiveMember {
		w += 2
	}
	if r.CreditScore < 550 {
		w += 1
	}
	if r.Tenure <= 3 {
		w += 1
	}
	if r.NumProducts >= 3 {
		w += 1
	}
	if r.Transactions < 50 {
		w += 0.5
	}
	return w
}

// weightedSample picks k distinct indices using Efraimidis-Spirakis keys
// u^(1/w), keeping the k largest.
func weightedSample(records []model.CustomerRecord, k int, rng *rand.Rand) []int {
	type keyed struct {
		key float64
		idx int
	}
	keys := make([]keyed, len(records))
	for i, r := range records {
		keys[i] = keyed{key: math.Pow(rng.Float64(), 1/churnWeight(r)), idx: i}
	}
	sort.SliceStable(keys, func(a, b int) bool { return keys[a].key > keys[b].key })

	out := make([]int, k)
	for i := range out {
		out[i] = keys[i].idx
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
