package garage

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

func TestCarDeterministic(t *testing.T) {
	g := NewGenerator(WithRandom(func(n int) int { return n - 1 }))
	assert.Equal(t, model.CarInput{Name: "Porsche 911", Color: "#ffffff"}, g.Car())

	g = NewGenerator(WithRandom(func(int) int { return 0 }))
	assert.Equal(t, model.CarInput{Name: "Tesla Model S", Color: "#000000"}, g.Car())
}

func TestCars(t *testing.T) {
	colorRe := regexp.MustCompile(`^#[0-9a-f]{6}$`)
	cars := NewGenerator().Cars(DefaultCount)
	require.Len(t, cars, DefaultCount)
	for _, c := range cars {
		assert.Regexp(t, colorRe, c.Color)
		brand, _, ok := strings.Cut(c.Name, " ")
		require.True(t, ok, c.Name)
		assert.Contains(t, brands, brand)
	}
	assert.Empty(t, NewGenerator().Cars(0))
}
