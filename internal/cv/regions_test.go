package cv

import "testing"

func TestRegionDimensions(t *testing.T) {
	r := NewRegion(10, 20, 110, 70)
	if r.Width() != 100 {
		t.Errorf("width: got %d, want 100", r.Width())
	}
	if r.Height() != 50 {
		t.Errorf("height: got %d, want 50", r.Height())
	}
	if r.Empty() {
		t.Error("non-degenerate region reported empty")
	}
	if !(Region{X1: 5, Y1: 5, X2: 5, Y2: 10}).Empty() {
		t.Error("zero-width region should be empty")
	}
}

func TestRegionContains(t *testing.T) {
	r := NewRegion(0, 0, 10, 10)
	if !r.Contains(5, 5) || !r.Contains(0, 0) || !r.Contains(10, 10) {
		t.Error("interior and boundary points should be contained")
	}
	if r.Contains(11, 5) || r.Contains(5, -1) {
		t.Error("exterior point reported contained")
	}
}

func TestSplitHorizontal(t *testing.T) {
	r := NewRegion(0, 0, 125, 40)
	slots := r.SplitHorizontal(12)
	if len(slots) != 12 {
		t.Fatalf("got %d slots, want 12", len(slots))
	}

	for i, s := range slots[:11] {
		if s.Width() != 10 {
			t.Errorf("slot %d width: got %d, want 10", i, s.Width())
		}
		if s.Y1 != 0 || s.Y2 != 40 {
			t.Errorf("slot %d vertical bounds changed: %+v", i, s)
		}
	}

	// Remainder goes to the last slot.
	last := slots[11]
	if last.Width() != 15 {
		t.Errorf("last slot absorbs remainder: got width %d, want 15", last.Width())
	}
	if last.X2 != 125 {
		t.Errorf("last slot must end at region edge, got %d", last.X2)
	}

	// Slots tile the region with no gaps.
	for i := 1; i < len(slots); i++ {
		if slots[i].X1 != slots[i-1].X2 {
			t.Errorf("gap between slot %d and %d", i-1, i)
		}
	}
}

func TestSplitHorizontalDegenerate(t *testing.T) {
	if got := NewRegion(0, 0, 100, 10).SplitHorizontal(0); got != nil {
		t.Error("n=0 should return nil")
	}
	if got := NewRegion(0, 0, 5, 10).SplitHorizontal(10); got != nil {
		t.Error("sub-pixel slots should return nil")
	}
	if got := (Region{}).SplitHorizontal(4); got != nil {
		t.Error("empty region should return nil")
	}
}

func TestToImageRectangle(t *testing.T) {
	rect := NewRegion(3, 4, 13, 24).ToImageRectangle()
	if rect.Min.X != 3 || rect.Min.Y != 4 || rect.Max.X != 13 || rect.Max.Y != 24 {
		t.Errorf("got %v", rect)
	}
}
