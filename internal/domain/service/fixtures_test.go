package service_test

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/bibbank/churn-service/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testCustomers returns n customers of which exactly round(n*rate) churn.
// Churners skew inactive, low-balance and short-tenure so models have a
// signal to learn.
func testCustomers(n int, rate float64, seed uint64) []model.CustomerRecord {
	rng := rand.New(rand.NewPCG(seed, seed))
	churners := int(math.Round(float64(n) * rate))
	out := make([]model.CustomerRecord, n)
	for i := range out {
		churn := i < churners
		r := model.CustomerRecord{
			CustomerID:     fmt.Sprintf("C%04d", i),
			Age:            18 + rng.IntN(62),
			Balance:        math.Round(rng.Float64()*100000*100) / 100,
			Transactions:   1 + rng.IntN(500),
			CreditScore:    300 + rng.IntN(550),
			Tenure:         1 + rng.IntN(29),
			Income:         20000 + math.Round(rng.Float64()*180000),
			NumProducts:    1 + rng.IntN(4),
			HasCreditCard:  rng.IntN(2) == 1,
			IsActiveMember: rng.IntN(2) == 1,
			Churn:          churn,
		}
		if churn {
			r.IsActiveMember = rng.Float64() < 0.15
			r.Transactions = 1 + rng.IntN(60)
			r.Tenure = 1 + rng.IntN(4)
			r.Balance = math.Round(rng.Float64()*15000*100) / 100
		}
		out[i] = r
	}
	rng.Shuffle(n, func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// separable returns a two-feature matrix where class 1 sits around (+2,+2)
// and class 0 around (-2,-2).
func separable(n int, positives int, seed uint64) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		centre := -2.0
		if i < positives {
			centre = 2
			y[i] = 1
		}
		X[i] = []float64{centre + rng.NormFloat64()*0.5, centre + rng.NormFloat64()*0.5}
	}
	return X, y
}
