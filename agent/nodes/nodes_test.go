package actionnode

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/autoosone/auto-state/agent/modules"
	"github.com/autoosone/auto-state/agent/persist"
	statex "github.com/autoosone/auto-state/agent/state"
)

type fakeRecorder struct {
	ops []string
}

func (f *fakeRecorder) Insert(rec persist.Record) { f.ops = append(f.ops, "insert:"+string(rec.Table())) }
func (f *fakeRecorder) DemoteSelections()         { f.ops = append(f.ops, "demote") }

func (f *fakeRecorder) MarkFlag(flag statex.Flag, v bool) error {
	f.ops = append(f.ops, "flag:"+string(flag))
	return nil
}

type fakeTransitioner struct {
	shared *statex.Shared
	err    error
}

func (f *fakeTransitioner) Advance(ctx context.Context, from, to statex.Stage) error {
	if f.err != nil {
		return f.err
	}
	f.shared.SetStage(to, time.Now())
	return nil
}

type answer contractx.Response

func (a answer) Present(context.Context, contractx.Presentation) (contractx.Response, error) {
	return contractx.Response(a), nil
}

func newRuntime() (Runtime, *fakeRecorder) {
	shared := statex.NewShared("session-test", time.Now())
	rec := &fakeRecorder{}
	return Runtime{
		Shared:       shared,
		Recorder:     rec,
		Transitioner: &fakeTransitioner{shared: shared},
		Presenter:    answer{Accepted: true},
	}, rec
}

func contactAction(applied *bool) *modules.ActionSpec {
	return &modules.ActionSpec{
		Name: "getContactInformation",
		Bind: func(args map[string]any) (any, error) {
			if args["email"] == nil {
				return nil, errors.Join(contractx.ErrValidation, errors.New("email is required"))
			}
			return args["email"], nil
		},
		Apply: func(ctx context.Context, payload any, resp contractx.Response) (modules.Effects, error) {
			*applied = true
			return modules.Effects{
				Records: []persist.Record{persist.NewContactRecord(statex.ContactInfo{Email: payload.(string)})},
				Flags:   []modules.FlagMark{{Flag: statex.FlagContactDone, Value: true}},
				Next:    statex.StageSelection,
				Message: "saved",
			}, nil
		},
	}
}

func run(t *testing.T, in GraphInput) GraphOutput {
	t.Helper()
	st, err := ValidateRequest(in)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	steps := []func(*GraphState) (*GraphState, error){
		ValidatePayload,
		func(s *GraphState) (*GraphState, error) { return AwaitConfirmation(context.Background(), s) },
		func(s *GraphState) (*GraphState, error) { return ApplyState(context.Background(), s) },
		PersistRecord,
		MarkFlag,
		func(s *GraphState) (*GraphState, error) { return RequestTransition(context.Background(), s) },
	}
	for _, step := range steps {
		if st.Halted {
			break
		}
		if st, err = step(st); err != nil {
			t.Fatalf("step error = %v", err)
		}
	}
	out, err := FinalizeResult(st)
	if err != nil {
		t.Fatalf("FinalizeResult() error = %v", err)
	}
	return out
}

func TestPipelineAcceptsAndAdvances(t *testing.T) {
	t.Parallel()

	rt, rec := newRuntime()
	var applied bool
	out := run(t, GraphInput{
		Stage:   statex.StageContactInfo,
		Action:  contactAction(&applied),
		Args:    map[string]any{"email": "ada@example.com"},
		Runtime: rt,
	})

	if out.Err != nil || !out.Result.Accepted {
		t.Fatalf("out = %+v", out)
	}
	if out.Result.Stage != statex.StageSelection {
		t.Fatalf("Stage = %s, want selection", out.Result.Stage)
	}
	want := []string{"insert:contact_info", "flag:contact_info_completed"}
	if len(rec.ops) != len(want) || rec.ops[0] != want[0] || rec.ops[1] != want[1] {
		t.Fatalf("ops = %v, want %v", rec.ops, want)
	}
}

func TestPipelineValidationHaltsWithoutMutation(t *testing.T) {
	t.Parallel()

	rt, rec := newRuntime()
	var applied bool
	out := run(t, GraphInput{
		Stage:   statex.StageContactInfo,
		Action:  contactAction(&applied),
		Args:    nil,
		Runtime: rt,
	})

	if !errors.Is(out.Err, contractx.ErrValidation) || out.Result.Accepted {
		t.Fatalf("out = %+v, want validation rejection", out)
	}
	if applied || len(rec.ops) != 0 {
		t.Fatalf("applied=%v ops=%v, want nothing", applied, rec.ops)
	}
	if out.Result.Stage != statex.StageContactInfo {
		t.Fatalf("Stage = %s, want contact_info", out.Result.Stage)
	}
}

func TestPipelineDeclinedPresentationKeepsBrowsingRecords(t *testing.T) {
	t.Parallel()

	rt, rec := newRuntime()
	rt.Presenter = answer{Accepted: false}
	var applied bool
	action := contactAction(&applied)
	action.Render = contractx.RenderChoose
	action.Present = func(ctx context.Context, payload any) (contractx.Presentation, []persist.Record, error) {
		return contractx.Presentation{Kind: contractx.RenderChoose, Prompt: "pick one"},
			[]persist.Record{persist.NewSelectionRecord(statex.Product{ID: "1"}, time.Now(), false)}, nil
	}

	out := run(t, GraphInput{
		Stage:   statex.StageContactInfo,
		Action:  action,
		Args:    map[string]any{"email": "ada@example.com"},
		Runtime: rt,
	})

	if out.Result.Accepted || out.Err != nil {
		t.Fatalf("out = %+v, want halted without error", out)
	}
	if applied {
		t.Fatalf("apply ran after decline")
	}
	if len(rec.ops) != 1 || rec.ops[0] != "insert:selected_cars" {
		t.Fatalf("ops = %v, want one browsing record", rec.ops)
	}
	if out.Presentation == nil || out.Presentation.Prompt != "pick one" {
		t.Fatalf("Presentation = %+v", out.Presentation)
	}
}

func TestPipelineTransitionFailureIsReported(t *testing.T) {
	t.Parallel()

	rt, _ := newRuntime()
	rt.Transitioner = &fakeTransitioner{shared: rt.Shared, err: contractx.ErrInvariant}
	var applied bool
	out := run(t, GraphInput{
		Stage:   statex.StageContactInfo,
		Action:  contactAction(&applied),
		Args:    map[string]any{"email": "ada@example.com"},
		Runtime: rt,
	})

	if !errors.Is(out.Err, contractx.ErrInvariant) || out.Result.Accepted {
		t.Fatalf("out = %+v, want invariant failure", out)
	}
}

func TestValidateRequestRejectsIncompleteRuntime(t *testing.T) {
	t.Parallel()

	_, err := ValidateRequest(GraphInput{
		Stage:  statex.StageContactInfo,
		Action: &modules.ActionSpec{Name: "x"},
	})
	if !errors.Is(err, contractx.ErrInvariant) {
		t.Fatalf("ValidateRequest() error = %v, want ErrInvariant", err)
	}
}
