package core

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"testing"
)

// --- Test model ---

var (
	widgetType = DefineType("test.Widget", ElementType)
	gadgetType = DefineType("test.Gadget", widgetType)
	otherType  = DefineType("test.Other", ObjectType)

	sizeProperty = Configure[float64, widgetLike](widgetType, "Size").
			DefaultValue(10).
			SerializeName("size").
			Validator(Range[float64]{Min: 0, Max: 100}).
			Register()

	levelProperty = Configure[int, widgetLike](widgetType, "Level").
			SerializeName("level").
			Validator(Range[int]{Min: 0, Max: 5, Policy: Reject}).
			Register()

	labelProperty = Configure[string, widgetLike](widgetType, "Label").
			Field(func(w widgetLike) *string { return &w.base().label }).
			DefaultValue("").
			SerializeName("label").
			Register()

	childProperty = Configure[*widget, widgetLike](widgetType, "Child").
			SerializeName("child").
			Register()

	transientProperty = Configure[int, widgetLike](widgetType, "Transient").
				DefaultValue(7).
				Register()

	colorProperty = Configure[string, *gadget](gadgetType, "Color").
			DefaultValue("red").
			SerializeName("color").
			Register()

	lazyCalls    int
	lazyProperty = Configure[[]int, widgetLike](widgetType, "Lazy").
			DefaultFunc(func() []int { lazyCalls++; return []int{1, 2} }).
			Register()
)

func init() {
	widgetType.SetFactory(func() Object { return newWidget() })
	gadgetType.SetFactory(func() Object { return newGadget() })
	otherType.SetFactory(func() Object { return newOther() })
}

type widgetLike interface {
	Hierarchical
	base() *widget
}

type widget struct {
	Element
	label    string
	Children ElementList[*widget]
	log      *[]string
}

func newWidget() *widget {
	w := &widget{}
	w.Init(w, widgetType)
	w.Children.Init(&w.Element)
	return w
}

func (w *widget) base() *widget { return w }

func (w *widget) OnAttached(Hierarchical) {
	if w.log != nil {
		*w.log = append(*w.log, w.label+" attached")
	}
}

func (w *widget) OnDetached(Hierarchical) {
	if w.log != nil {
		*w.log = append(*w.log, w.label+" detached")
	}
}

func (w *widget) WriteJSON(m map[string]any) {
	if w.Children.Len() > 0 {
		m["children"] = MarshalList(w.Children.Items())
	}
}

func (w *widget) ReadJSON(m map[string]any) {
	w.Children.Add(UnmarshalList[*widget](m["children"])...)
}

type gadget struct {
	widget
}

func newGadget() *gadget {
	g := &gadget{}
	g.Init(g, gadgetType)
	g.Children.Init(&g.Element)
	return g
}

type other struct {
	CoreObject
}

func newOther() *other {
	o := &other{}
	o.Init(o, otherType)
	return o
}

// --- Registry ---

func TestRegisteredAncestorsFirst(t *testing.T) {
	props := Registered(gadgetType)
	if len(props) < 3 {
		t.Fatalf("len(Registered) = %d, want >= 3", len(props))
	}
	if props[0] != IDProperty || props[1] != NameProperty {
		t.Errorf("first properties = %v, %v, want Id, Name", props[0].Name(), props[1].Name())
	}
	if last := props[len(props)-1]; last != colorProperty {
		t.Errorf("last property = %s, want Color", last.Name())
	}
}

func TestPropertyIDsMonotonic(t *testing.T) {
	props := Registered(widgetType)
	for i := 1; i < len(props); i++ {
		if props[i].ID() <= props[i-1].ID() {
			t.Errorf("id[%d] = %d not greater than id[%d] = %d", i, props[i].ID(), i-1, props[i-1].ID())
		}
	}
	p, ok := PropertyByID(sizeProperty.ID())
	if !ok || p != sizeProperty {
		t.Errorf("PropertyByID(%d) = %v, want Size", sizeProperty.ID(), p)
	}
}

func TestFindRegisteredBySerializeName(t *testing.T) {
	p, ok := FindRegistered(gadgetType, "size")
	if !ok || p != sizeProperty {
		t.Errorf("FindRegistered(size) = %v, %v", p, ok)
	}
	if _, ok := FindRegistered(otherType, "size"); ok {
		t.Error("Size should not be visible on Other")
	}
}

func TestDefineTypeDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	DefineType("test.Widget", nil)
}

// --- Values ---

func TestGetValueReturnsDefault(t *testing.T) {
	w := newWidget()
	if got := GetValue(w, sizeProperty); got != 10 {
		t.Errorf("Size = %v, want 10", got)
	}
	if got := GetValue(w, levelProperty); got != 0 {
		t.Errorf("Level = %v, want 0", got)
	}
	if got := GetValue(w, childProperty); got != nil {
		t.Errorf("Child = %v, want nil", got)
	}
}

func TestDefaultFuncComputedOnce(t *testing.T) {
	before := lazyCalls
	a, b := newWidget(), newWidget()
	GetValue(a, lazyProperty)
	GetValue(b, lazyProperty)
	GetValue(a, lazyProperty)
	if lazyCalls-before > 1 {
		t.Errorf("default computed %d times, want at most 1", lazyCalls-before)
	}
}

func TestOverrideMetadata(t *testing.T) {
	sizeProperty.OverrideMetadata(gadgetType, Metadata[float64]{Default: func() float64 { return 42 }})
	if got := GetValue(newGadget(), sizeProperty); got != 42 {
		t.Errorf("gadget Size = %v, want 42", got)
	}
	if got := GetValue(newWidget(), sizeProperty); got != 10 {
		t.Errorf("widget Size = %v, want 10", got)
	}
	if got := sizeProperty.SerializeName(gadgetType); got != "size" {
		t.Errorf("SerializeName = %q, want inherited %q", got, "size")
	}
}

func TestSetValueRaisesChangingThenChanged(t *testing.T) {
	w := newWidget()
	var order []string
	w.PropertyChanging().Subscribe(func(e *PropertyChangedEvent) {
		order = append(order, "changing")
		if got := GetValue(w, sizeProperty); got != 10 {
			t.Errorf("value during changing = %v, want 10", got)
		}
	})
	w.PropertyChanged().Subscribe(func(e *PropertyChangedEvent) {
		order = append(order, "changed")
		if e.OldValue != 10.0 || e.NewValue != 20.0 {
			t.Errorf("event = %v -> %v, want 10 -> 20", e.OldValue, e.NewValue)
		}
	})
	if err := SetValue(w, sizeProperty, 20); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "changing" || order[1] != "changed" {
		t.Errorf("order = %v, want [changing changed]", order)
	}
}

func TestSetSameValueNoNotification(t *testing.T) {
	tests := []struct {
		name string
		set  func(w *widget)
	}{
		{"dictionary default", func(w *widget) { Set(w, sizeProperty, GetValue(w, sizeProperty)) }},
		{"dictionary stored", func(w *widget) { Set(w, levelProperty, GetValue(w, levelProperty)) }},
		{"accessor", func(w *widget) { Set(w, labelProperty, GetValue(w, labelProperty)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWidget()
			Set(w, levelProperty, 3)
			Set(w, labelProperty, "x")
			n := 0
			w.PropertyChanged().Subscribe(func(*PropertyChangedEvent) { n++ })
			w.PropertyChanging().Subscribe(func(*PropertyChangedEvent) { n++ })
			tt.set(w)
			if n != 0 {
				t.Errorf("notifications = %d, want 0", n)
			}
		})
	}
}

func TestAccessorPropertyNotifies(t *testing.T) {
	w := newWidget()
	var got *PropertyChangedEvent
	cancel := labelProperty.Changed().Subscribe(func(e *PropertyChangedEvent) { got = e })
	defer cancel()
	Set(w, labelProperty, "hello")
	if w.label != "hello" {
		t.Errorf("label = %q, want hello", w.label)
	}
	if got == nil || got.Sender != Object(w) || got.NewValue != "hello" {
		t.Errorf("global Changed event = %+v", got)
	}
}

func TestValidatorCoerce(t *testing.T) {
	w := newWidget()
	if err := SetValue(w, sizeProperty, 500); err != nil {
		t.Fatalf("coercing validator returned %v", err)
	}
	if got := GetValue(w, sizeProperty); got != 100 {
		t.Errorf("Size = %v, want 100", got)
	}
}

func TestValidatorReject(t *testing.T) {
	w := newWidget()
	Set(w, levelProperty, 2)
	err := SetValue(w, levelProperty, 9)
	if !errors.Is(err, ErrInvalidPropertyValue) {
		t.Fatalf("err = %v, want ErrInvalidPropertyValue", err)
	}
	if KindOf(err) != KindInvalidPropertyValue {
		t.Errorf("KindOf = %v, want %v", KindOf(err), KindInvalidPropertyValue)
	}
	if got := GetValue(w, levelProperty); got != 2 {
		t.Errorf("Level = %v, want unchanged 2", got)
	}
}

func TestValidatorRejectsNaN(t *testing.T) {
	tests := []struct {
		name string
		v    Validator[float64]
	}{
		{"range coerce", Range[float64]{Min: 0, Max: 1}},
		{"range reject", Range[float64]{Min: 0, Max: 1, Policy: Reject}},
		{"min", Min(0.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.v.Validate(math.NaN()); err == nil {
				t.Error("NaN accepted")
			}
		})
	}

	w := newWidget()
	Set(w, sizeProperty, 40)
	err := SetValue(w, sizeProperty, math.NaN())
	if !errors.Is(err, ErrInvalidPropertyValue) {
		t.Fatalf("err = %v, want ErrInvalidPropertyValue", err)
	}
	if got := GetValue(w, sizeProperty); got != 40 {
		t.Errorf("Size = %v, want unchanged 40", got)
	}
}

func TestDefaultEqualityNaN(t *testing.T) {
	if !sizeProperty.Equal(math.NaN(), math.NaN()) {
		t.Error("NaN not equal to itself")
	}
	if sizeProperty.Equal(math.NaN(), 1) {
		t.Error("NaN equal to 1")
	}
}

func TestConcurrentRegistration(t *testing.T) {
	const workers, perType = 8, 16
	props := make([][]Prop, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			typ := DefineType(fmt.Sprintf("test.Concurrent%d", i), ElementType)
			for j := range perType {
				props[i] = append(props[i], Configure[int, Object](typ, fmt.Sprintf("P%d", j)).Register())
				Registered(typ)
			}
		}()
	}
	wg.Wait()

	seen := make(map[int32]bool)
	for i, ps := range props {
		for j, p := range ps {
			if seen[p.ID()] {
				t.Fatalf("duplicate id %d", p.ID())
			}
			seen[p.ID()] = true
			if j > 0 && p.ID() <= ps[j-1].ID() {
				t.Errorf("type %d: id %d not greater than %d", i, p.ID(), ps[j-1].ID())
			}
			if got, ok := PropertyByID(p.ID()); !ok || got != p {
				t.Errorf("PropertyByID(%d) = %v", p.ID(), got)
			}
		}
		typ, _ := TypeByName(fmt.Sprintf("test.Concurrent%d", i))
		own := Registered(typ)[len(Registered(ElementType)):]
		if !slices.Equal(own, ps) {
			t.Errorf("type %d: Registered order differs from declaration order", i)
		}
	}
}

func TestOwnerMismatchPanics(t *testing.T) {
	defer func() {
		r := recover()
		e, ok := r.(*Error)
		if !ok || e.Kind != KindOwnerMismatch {
			t.Errorf("recover() = %v, want *Error of kind owner-mismatch", r)
		}
	}()
	GetValue(newOther(), sizeProperty)
}

func TestSetBoxedTypeMismatch(t *testing.T) {
	w := newWidget()
	err := sizeProperty.SetBoxed(w, "not a number")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
	if err := sizeProperty.SetBoxed(w, 3.0); err != nil {
		t.Errorf("SetBoxed(3.0) = %v", err)
	}
}

func TestClearValueRestoresDefault(t *testing.T) {
	w := newWidget()
	Set(w, sizeProperty, 50)
	ClearValue(w, sizeProperty)
	if IsSet(w, sizeProperty) {
		t.Error("Size still set after ClearValue")
	}
	if got := GetValue(w, sizeProperty); got != 10 {
		t.Errorf("Size = %v, want 10", got)
	}
}

func TestEventCancel(t *testing.T) {
	var ev Event[int]
	var got []int
	cancel := ev.Subscribe(func(v int) { got = append(got, v) })
	ev.Subscribe(func(v int) { got = append(got, v*10) })
	ev.Raise(1)
	cancel()
	cancel()
	ev.Raise(2)
	want := []int{1, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
