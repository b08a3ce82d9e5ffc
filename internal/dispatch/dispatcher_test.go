package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/glabrego/sitebag-cli/internal/sitebag"
)

type fakeClient struct {
	err   error
	calls []string
}

func (f *fakeClient) DeleteEntry(_ context.Context, id string) (string, error) {
	f.calls = append(f.calls, "delete:"+id)
	return "Entry deleted", f.err
}

func (f *fakeClient) ToggleArchived(_ context.Context, id string) (string, error) {
	f.calls = append(f.calls, "togglearchived:"+id)
	return "Entry archived", f.err
}

func (f *fakeClient) SetFavourite(_ context.Context, id string, favourite bool) (string, error) {
	if favourite {
		f.calls = append(f.calls, "favour:"+id)
	} else {
		f.calls = append(f.calls, "unfavour:"+id)
	}
	return "Entry updated", f.err
}

func TestDispatch_SuccessNotifiesEverySubscriber(t *testing.T) {
	f := &fakeClient{}
	d := New(f)
	var a, b []Event
	d.Subscribe(func(ev Event) { a = append(a, ev) })
	d.Subscribe(func(ev Event) { b = append(b, ev) })

	ctx := context.Background()
	if _, err := d.ToggleArchived(ctx, "e1"); err != nil {
		t.Fatalf("ToggleArchived returned error: %v", err)
	}
	if _, err := d.SetFavourite(ctx, "e2", false); err != nil {
		t.Fatalf("SetFavourite returned error: %v", err)
	}
	if _, err := d.Delete(ctx, ConfirmDelete("e3")); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	want := []Event{
		{Action: ActionToggleArchived, EntryID: "e1", Message: "Entry archived"},
		{Action: ActionFavour, EntryID: "e2", Message: "Entry updated"},
		{Action: ActionDelete, EntryID: "e3", Message: "Entry deleted"},
	}
	for _, got := range [][]Event{a, b} {
		if len(got) != len(want) {
			t.Fatalf("expected %d events, got %+v", len(want), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("event[%d] = %+v, want %+v", i, got[i], want[i])
			}
		}
	}
	if len(f.calls) != 3 || f.calls[1] != "unfavour:e2" {
		t.Fatalf("unexpected calls: %v", f.calls)
	}
}

func TestDispatch_FailureNotifiesNobody(t *testing.T) {
	f := &fakeClient{err: &sitebag.APIError{Op: "toggle archived", Message: "no such entry"}}
	d := New(f)
	notified := 0
	d.Subscribe(func(Event) { notified++ })

	_, err := d.ToggleArchived(context.Background(), "e1")
	if !sitebag.IsAPI(err) {
		t.Fatalf("expected API error, got %v", err)
	}
	if sitebag.UserMessage(err) != "no such entry" {
		t.Fatalf("unexpected user message: %q", sitebag.UserMessage(err))
	}
	if notified != 0 {
		t.Fatalf("expected no notification, got %d", notified)
	}
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	f := &fakeClient{}
	d := New(f)
	notified := 0
	d.Subscribe(func(Event) { notified++ })

	for _, c := range []Confirmation{{}, ConfirmDelete("  ")} {
		if _, err := d.Delete(context.Background(), c); !errors.Is(err, ErrNotConfirmed) {
			t.Fatalf("expected ErrNotConfirmed, got %v", err)
		}
	}
	if len(f.calls) != 0 || notified != 0 {
		t.Fatalf("unconfirmed delete reached the client: %v", f.calls)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	d := New(&fakeClient{})
	count := 0
	unsubscribe := d.Subscribe(func(Event) { count++ })

	if _, err := d.ToggleArchived(context.Background(), "e1"); err != nil {
		t.Fatalf("ToggleArchived returned error: %v", err)
	}
	unsubscribe()
	if _, err := d.ToggleArchived(context.Background(), "e1"); err != nil {
		t.Fatalf("ToggleArchived returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one notification, got %d", count)
	}
}
