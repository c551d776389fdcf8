package conversation

import "math/rand/v2"

// Chooser picks an index in [0, n). n is always > 0.
type Chooser interface {
	Choose(n int) int
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(n int) int

func (f ChooserFunc) Choose(n int) int { return f(n) }

// RandomChooser picks uniformly at random.
type RandomChooser struct{}

func (RandomChooser) Choose(n int) int { return rand.IntN(n) }

// FirstChooser always picks index 0.
type FirstChooser struct{}

func (FirstChooser) Choose(int) int { return 0 }
