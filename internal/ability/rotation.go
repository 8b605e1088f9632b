package ability

// Rotation is an ordered, optionally repeating, optionally adaptive
// sequence of ability names.
type Rotation struct {
	Name      string
	Abilities []string
	Repeat    bool
	// Adaptive rotations skip abilities that are not currently ready
	// instead of stalling on them.
	Adaptive bool

	cursor     int
	dispatched int
	disabled   bool
}

// NewRotation creates a rotation over the given ability names.
func NewRotation(name string, abilities []string, repeat, adaptive bool) *Rotation {
	return &Rotation{
		Name:      name,
		Abilities: abilities,
		Repeat:    repeat,
		Adaptive:  adaptive,
	}
}

// Len returns the number of entries.
func (r *Rotation) Len() int {
	return len(r.Abilities)
}

// Disabled reports whether a non-repeating rotation has run out.
func (r *Rotation) Disabled() bool {
	return r.disabled
}

// Dispatched returns the count of abilities handed out so far.
func (r *Rotation) Dispatched() int {
	return r.dispatched
}

// Cursor returns the current position. Always a valid index while the
// rotation is non-empty.
func (r *Rotation) Cursor() int {
	return r.cursor
}

// Next returns the ability name at the cursor and advances, counting the
// entry as dispatched. A non-repeating rotation disables itself when the
// end is passed; once disabled it keeps returning the last entry without
// advancing.
func (r *Rotation) Next() (string, bool) {
	if len(r.Abilities) == 0 {
		return "", false
	}

	name := r.Abilities[r.cursor]
	r.dispatched++
	r.advance()
	return name, true
}

// Skip passes over the current entry without counting it as dispatched.
func (r *Rotation) Skip() {
	if len(r.Abilities) == 0 {
		return
	}
	r.advance()
}

func (r *Rotation) advance() {
	if r.disabled {
		return
	}
	if r.cursor == len(r.Abilities)-1 {
		if r.Repeat {
			r.cursor = 0
		} else {
			r.disabled = true
		}
	} else {
		r.cursor++
	}
}

// Peek returns the ability at the cursor without advancing.
func (r *Rotation) Peek() (string, bool) {
	if len(r.Abilities) == 0 {
		return "", false
	}
	return r.Abilities[r.cursor], true
}

// Reset rewinds the cursor and re-enables the rotation.
func (r *Rotation) Reset() {
	r.cursor = 0
	r.dispatched = 0
	r.disabled = false
}
