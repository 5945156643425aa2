package totals

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAutoFollowsLineItems(t *testing.T) {
	tr := NewAuto(decimal.Zero)
	tr.ItemsChanged(decimal.NewFromInt(21200))
	tr.ItemsChanged(decimal.NewFromInt(27200))
	if tr.Mode() != ModeAuto || !tr.Total().Equal(decimal.NewFromInt(27200)) {
		t.Fatalf("expected AUTO 27200, got %s %s", tr.Mode(), tr.Total())
	}
}

func TestManualEditLocksAndSurvivesItemChanges(t *testing.T) {
	tr := NewAuto(decimal.NewFromInt(27200))
	if err := tr.SetManual(decimal.NewFromInt(25000)); err != nil {
		t.Fatalf("set manual failed: %v", err)
	}
	tr.ItemsChanged(decimal.NewFromInt(33200))
	if !tr.Locked() || !tr.Total().Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("expected LOCKED 25000, got %s %s", tr.Mode(), tr.Total())
	}
	if !tr.LineSum().Equal(decimal.NewFromInt(33200)) {
		t.Fatalf("expected line sum to track items, got %s", tr.LineSum())
	}
}

func TestUnlockRecomputesImmediately(t *testing.T) {
	tr := NewAuto(decimal.NewFromInt(27200))
	_ = tr.SetManual(decimal.NewFromInt(25000))
	tr.ItemsChanged(decimal.NewFromInt(33200))
	tr.Unlock()
	if tr.Mode() != ModeAuto || !tr.Total().Equal(decimal.NewFromInt(33200)) {
		t.Fatalf("expected AUTO 33200, got %s %s", tr.Mode(), tr.Total())
	}
	tr.ItemsChanged(decimal.NewFromInt(6000))
	if !tr.Total().Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("expected pin discarded, got %s", tr.Total())
	}
}

func TestLoadPersistedStartsLocked(t *testing.T) {
	tr := LoadPersisted(decimal.NewFromInt(25000), decimal.NewFromInt(27200))
	if !tr.Locked() || !tr.Total().Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("expected LOCKED 25000, got %s %s", tr.Mode(), tr.Total())
	}
	tr.ItemsChanged(decimal.NewFromInt(28000))
	if !tr.Total().Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("persisted total must not be overwritten")
	}
}

func TestSetManualRejectsNonPositive(t *testing.T) {
	tr := NewAuto(decimal.NewFromInt(100))
	if err := tr.SetManual(decimal.Zero); !errors.Is(err, ErrNonPositiveTotal) {
		t.Fatalf("expected ErrNonPositiveTotal, got %v", err)
	}
	if tr.Locked() {
		t.Fatalf("rejected edit must not lock")
	}
}
