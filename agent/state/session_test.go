package state

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStageOrder(t *testing.T) {
	t.Parallel()

	stages := Stages()
	if len(stages) != 6 {
		t.Fatalf("len(Stages()) = %d, want 6", len(stages))
	}
	if InitialStage() != StageContactInfo {
		t.Fatalf("InitialStage() = %s", InitialStage())
	}
	for i := 0; i < len(stages)-1; i++ {
		next, ok := stages[i].Next()
		if !ok || next != stages[i+1] {
			t.Fatalf("%s.Next() = %s, %v; want %s", stages[i], next, ok, stages[i+1])
		}
		if !stages[i].Before(stages[i+1]) {
			t.Fatalf("%s should come before %s", stages[i], stages[i+1])
		}
	}
	if _, ok := StageConfirmation.Next(); ok {
		t.Fatal("confirmation must not have a successor")
	}
	if !StageConfirmation.Terminal() || StagePaymentDetails.Terminal() {
		t.Fatal("only confirmation is terminal")
	}
}

func TestParseStage(t *testing.T) {
	t.Parallel()

	st, err := ParseStage(" selection ")
	if err != nil || st != StageSelection {
		t.Fatalf("ParseStage() = %q, %v", st, err)
	}
	if _, err := ParseStage("checkout"); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("ParseStage() error = %v, want ErrUnknownStage", err)
	}
}

func TestProductIDAcceptsNumbers(t *testing.T) {
	t.Parallel()

	var p Product
	if err := p.ID.UnmarshalJSON([]byte(`7`)); err != nil {
		t.Fatalf("UnmarshalJSON(7) error = %v", err)
	}
	if p.ID != "7" {
		t.Fatalf("ID = %q, want 7", p.ID)
	}
	if err := p.ID.UnmarshalJSON([]byte(`" car-9 "`)); err != nil || p.ID != "car-9" {
		t.Fatalf("ID = %q, err = %v", p.ID, err)
	}
	if err := p.ID.UnmarshalJSON([]byte(`{}`)); err == nil {
		t.Fatal("expected error for object id")
	}
}

func TestSharedSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	sh := NewShared("session-1", time.Now())
	sh.SetSelectedProduct(&Product{ID: "7", Price: decimal.NewFromInt(62000)})
	sh.SetDurableID(41)

	snap := sh.Snapshot()
	snap.SelectedProduct.ID = "8"
	*snap.Session.DurableID = 99

	got, _ := sh.SelectedProduct()
	if got.ID != "7" {
		t.Fatalf("product mutated through snapshot: %q", got.ID)
	}
	if id, _ := sh.Session().Durable(); id != 41 {
		t.Fatalf("durable id mutated through snapshot: %d", id)
	}
}

func TestSharedFlags(t *testing.T) {
	t.Parallel()

	sh := NewShared("session-1", time.Now())
	if err := sh.SetFlag(FlagContactDone, true, time.Now()); err != nil {
		t.Fatalf("SetFlag() error = %v", err)
	}
	if !sh.Session().Flags.ContactDone {
		t.Fatal("ContactDone not set")
	}
	if err := sh.SetFlag("bogus", true, time.Now()); !errors.Is(err, ErrUnknownFlag) {
		t.Fatalf("SetFlag(bogus) error = %v, want ErrUnknownFlag", err)
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()

	sh := NewShared("session-r", time.Now())
	sh.SetStage(StagePaymentDetails, time.Now())
	sh.SetPayment(PaymentInfo{Method: "card"})

	restored, err := Restore(sh.Snapshot())
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Stage() != StagePaymentDetails {
		t.Fatalf("Stage() = %s", restored.Stage())
	}
	if p, ok := restored.Payment(); !ok || p.Method != "card" {
		t.Fatalf("Payment() = %#v, %v", p, ok)
	}

	bad := sh.Snapshot()
	bad.Orders = []Order{{OrderNumber: "x"}}
	if _, err := Restore(bad); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("Restore() error = %v, want ErrInvalidSnapshot", err)
	}
}

func TestRestoreNormalizesStage(t *testing.T) {
	t.Parallel()

	snap := NewShared("session-n", time.Now()).Snapshot()
	snap.Session.Stage = " selection "
	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Stage() != StageSelection {
		t.Fatalf("Stage() = %q, want selection", restored.Stage())
	}

	snap.Session.Stage = "checkout"
	if _, err := Restore(snap); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("Restore() error = %v, want ErrInvalidSnapshot", err)
	}
}
