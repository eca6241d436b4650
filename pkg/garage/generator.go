// Package garage creates random cars for the garage.
package garage

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

// DefaultCount is the number of cars created by one generate request.
const DefaultCount = 100

var (
	brands = []string{
		"Tesla", "Ford", "BMW", "Audi", "Mercedes",
		"Toyota", "Honda", "Nissan", "Volkswagen", "Porsche",
	}
	models = []string{
		"Model S", "Mustang", "X5", "A4", "C-Class",
		"Camry", "Civic", "Altima", "Golf", "911",
	}
)

type (
	Option    func(*Generator)
	Generator struct {
		intN func(n int) int
	}
)

// WithRandom replaces the random source. f must return values in [0,n).
func WithRandom(f func(n int) int) Option {
	return func(g *Generator) {
		g.intN = f
	}
}

func NewGenerator(opts ...Option) *Generator {
	ret := &Generator{intN: rand.IntN}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Car returns a car with a random brand/model name and a random color.
func (g *Generator) Car() model.CarInput {
	return model.CarInput{
		Name:  brands[g.intN(len(brands))] + " " + models[g.intN(len(models))],
		Color: fmt.Sprintf("#%06x", g.intN(0x1000000)),
	}
}

func (g *Generator) Cars(count int) []model.CarInput {
	return lo.Times(count, func(int) model.CarInput { return g.Car() })
}
