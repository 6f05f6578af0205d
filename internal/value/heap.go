package value

// Object is the abstract heap object base described by spec.md §3: every
// heap-allocated value (long String, Array, Quote) occupies a slot of the
// Heap's handle table from allocation until sweep frees it, and carries
// one mark bit, consulted and cleared by sweep.
type Object struct {
	marked bool
	kind   Kind

	str   string  // KindString
	arr   []Value // KindArray
	quote QuoteRef // KindQuote
}

// QuoteRef is what a Quote heap object refers to: a compiled word. It is
// an interface so that internal/word.Word (which would otherwise import
// internal/value, creating a cycle) can be referenced opaquely here.
type QuoteRef interface {
	// Empty reports whether the referenced word's body performs no
	// observable work -- used by the _ZBRANCH falsy rule for quotes.
	Empty() bool
}

// Heap owns every heap-allocated Object and the handle table addressing
// them from boxed Values. It implements spec.md §4.3's mark-sweep GC.
type Heap struct {
	objects []*Object // handle table; a freed slot is nil
	free    []uint64  // recycled handle indices
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

func (h *Heap) alloc(obj *Object) uint64 {
	if n := len(h.free); n > 0 {
		idx := h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[idx] = obj
		return idx
	}
	idx := uint64(len(h.objects))
	h.objects = append(h.objects, obj)
	return idx
}

func (h *Heap) at(v Value) *Object {
	idx, ok := v.handle()
	if !ok {
		return nil
	}
	if idx >= uint64(len(h.objects)) {
		return nil
	}
	return h.objects[idx]
}

// NewString heap-allocates a string longer than 6 bytes. Given a string
// of 6 bytes or fewer it allocates nothing and returns ShortString(s),
// so callers can pass any string.
func (h *Heap) NewString(s string) Value {
	if len(s) <= 6 {
		return ShortString(s)
	}
	idx := h.alloc(&Object{kind: KindString, str: s})
	return heapValue(0, idx)
}

// NewArray heap-allocates an array of Values.
func (h *Heap) NewArray(elems []Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	idx := h.alloc(&Object{kind: KindArray, arr: cp})
	return heapValue(1, idx)
}

// NewQuote heap-allocates a reference to a compiled word.
func (h *Heap) NewQuote(ref QuoteRef) Value {
	idx := h.alloc(&Object{kind: KindQuote, quote: ref})
	return heapValue(2, idx)
}

// StringOf returns the string content of a String value, inline or heap.
func (h *Heap) StringOf(v Value) string {
	if b, ok := v.shortStringBytes(); ok {
		return string(b)
	}
	if obj := h.at(v); obj != nil && obj.kind == KindString {
		return obj.str
	}
	return ""
}

// ArrayOf returns the element slice of an Array value. The returned slice
// aliases heap storage; callers must not retain it past a mutating op.
func (h *Heap) ArrayOf(v Value) []Value {
	if obj := h.at(v); obj != nil && obj.kind == KindArray {
		return obj.arr
	}
	return nil
}

// QuoteOf returns the word a Quote value refers to.
func (h *Heap) QuoteOf(v Value) QuoteRef {
	if obj := h.at(v); obj != nil && obj.kind == KindQuote {
		return obj.quote
	}
	return nil
}

// QuoteEmpty reports whether a Quote value's referenced word performs no
// observable work, per the _ZBRANCH falsy rule.
func (h *Heap) QuoteEmpty(v Value) bool {
	ref := h.QuoteOf(v)
	return ref == nil || ref.Empty()
}

// Length implements the LENGTH opcode: byte length of a string, element
// count of an array.
func (h *Heap) Length(v Value) (int, bool) {
	switch v.Kind() {
	case KindString:
		return len(h.StringOf(v)), true
	case KindArray:
		return len(h.ArrayOf(v)), true
	default:
		return 0, false
	}
}

// Concat implements the overload of PLUS for strings (concatenation) and
// arrays (append), per spec.md §4.2.
func (h *Heap) Concat(a, b Value) (Value, bool) {
	switch {
	case a.Kind() == KindString && b.Kind() == KindString:
		return h.NewString(h.StringOf(a) + h.StringOf(b)), true
	case a.Kind() == KindArray && b.Kind() == KindArray:
		aa, ba := h.ArrayOf(a), h.ArrayOf(b)
		out := make([]Value, 0, len(aa)+len(ba))
		out = append(out, aa...)
		out = append(out, ba...)
		return h.NewArray(out), true
	case a.Kind() == KindArray:
		aa := h.ArrayOf(a)
		out := make([]Value, 0, len(aa)+1)
		out = append(out, aa...)
		out = append(out, b)
		return h.NewArray(out), true
	default:
		return Null, false
	}
}

// Mark marks v (and, recursively, everything it references) reachable.
// Arrays recurse into their elements; quotes mark their compiled word's
// embedded literal Values via markWord.
func (h *Heap) Mark(v Value, markWord func(QuoteRef)) {
	obj := h.at(v)
	if obj == nil {
		return
	}
	if obj.marked {
		return
	}
	obj.marked = true
	switch obj.kind {
	case KindArray:
		for _, e := range obj.arr {
			h.Mark(e, markWord)
		}
	case KindQuote:
		if markWord != nil {
			markWord(obj.quote)
		}
	}
}

// Sweep frees every unmarked object and clears the mark bit of every
// surviving object, per spec.md §4.3. It returns the number of objects
// freed.
func (h *Heap) Sweep() int {
	freed := 0
	for idx, obj := range h.objects {
		if obj == nil {
			continue
		}
		if obj.marked {
			obj.marked = false
			continue
		}
		h.objects[idx] = nil
		h.free = append(h.free, uint64(idx))
		freed++
	}
	return freed
}

// Live returns the number of currently-live (non-freed) heap objects,
// used by tests asserting GC idempotence (spec.md §8 property 4).
func (h *Heap) Live() int {
	n := 0
	for _, obj := range h.objects {
		if obj != nil {
			n++
		}
	}
	return n
}
