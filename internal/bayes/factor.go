package bayes

// factor is a non-negative table over a set of discrete variables. Values are
// stored row-major: the last variable changes fastest.
type factor struct {
	vars   []string
	card   []int
	values []float64
}

func newFactor(vars []string, card []int) *factor {
	size := 1
	for _, c := range card {
		size *= c
	}
	return &factor{
		vars:   vars,
		card:   card,
		values: make([]float64, size),
	}
}

// pos returns the index of v in the factor scope, or -1.
func (f *factor) pos(v string) int {
	for i, name := range f.vars {
		if name == v {
			return i
		}
	}
	return -1
}

func (f *factor) has(v string) bool {
	return f.pos(v) >= 0
}

func (f *factor) strides() []int {
	strides := make([]int, len(f.card))
	step := 1
	for i := len(f.card) - 1; i >= 0; i-- {
		strides[i] = step
		step *= f.card[i]
	}
	return strides
}

// forEachAssignment walks every joint assignment of card in storage order.
func forEachAssignment(card []int, fn func(assign []int, i int)) {
	size := 1
	for _, c := range card {
		size *= c
	}
	assign := make([]int, len(card))
	for i := 0; i < size; i++ {
		fn(assign, i)
		for k := len(assign) - 1; k >= 0; k-- {
			assign[k]++
			if assign[k] < card[k] {
				break
			}
			assign[k] = 0
		}
	}
}

// product multiplies two factors over the union of their scopes.
func product(a, b *factor) *factor {
	vars := append([]string(nil), a.vars...)
	card := append([]int(nil), a.card...)
	for i, v := range b.vars {
		if !a.has(v) {
			vars = append(vars, v)
			card = append(card, b.card[i])
		}
	}
	out := newFactor(vars, card)

	aStrides, bStrides := a.strides(), b.strides()
	aMap := make([]int, len(a.vars))
	for i, v := range a.vars {
		aMap[i] = out.pos(v)
	}
	bMap := make([]int, len(b.vars))
	for i, v := range b.vars {
		bMap[i] = out.pos(v)
	}

	forEachAssignment(card, func(assign []int, i int) {
		ai, bi := 0, 0
		for k, p := range aMap {
			ai += assign[p] * aStrides[k]
		}
		for k, p := range bMap {
			bi += assign[p] * bStrides[k]
		}
		out.values[i] = a.values[ai] * b.values[bi]
	})
	return out
}

// without returns scope and cardinalities with position p removed.
func (f *factor) without(p int) ([]string, []int) {
	vars := make([]string, 0, len(f.vars)-1)
	card := make([]int, 0, len(f.card)-1)
	for i := range f.vars {
		if i == p {
			continue
		}
		vars = append(vars, f.vars[i])
		card = append(card, f.card[i])
	}
	return vars, card
}

// sumOut marginalises v out of the factor.
func (f *factor) sumOut(v string) *factor {
	p := f.pos(v)
	if p < 0 {
		return f
	}
	vars, card := f.without(p)
	out := newFactor(vars, card)
	outStrides := out.strides()

	forEachAssignment(f.card, func(assign []int, i int) {
		oi, k := 0, 0
		for j, s := range assign {
			if j == p {
				continue
			}
			oi += s * outStrides[k]
			k++
		}
		out.values[oi] += f.values[i]
	})
	return out
}

// reduce conditions the factor on v = state and drops v from the scope.
func (f *factor) reduce(v string, state int) *factor {
	p := f.pos(v)
	if p < 0 {
		return f
	}
	vars, card := f.without(p)
	out := newFactor(vars, card)
	outStrides := out.strides()

	forEachAssignment(f.card, func(assign []int, i int) {
		if assign[p] != state {
			return
		}
		oi, k := 0, 0
		for j, s := range assign {
			if j == p {
				continue
			}
			oi += s * outStrides[k]
			k++
		}
		out.values[oi] = f.values[i]
	})
	return out
}

func (f *factor) sum() float64 {
	total := 0.0
	for _, v := range f.values {
		total += v
	}
	return total
}
