package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeDestroyer struct {
	destroyed []string
	failOn    string
}

func (f *fakeDestroyer) Destroy(_ context.Context, publicID string) error {
	if publicID == f.failOn {
		return errors.New("host unavailable")
	}
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

func TestHandleMessage(t *testing.T) {
	host := &fakeDestroyer{}
	body, _ := json.Marshal(ImageCleanupEvent{
		CampgroundID: 7,
		Filenames:    []string{"YelpCamp/a", "YelpCamp/b"},
		RequestedAt:  time.Now().UTC(),
	})

	if err := handleMessage(body, host); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if len(host.destroyed) != 2 || host.destroyed[0] != "YelpCamp/a" || host.destroyed[1] != "YelpCamp/b" {
		t.Errorf("destroyed = %v", host.destroyed)
	}
}

func TestHandleMessagePartialFailure(t *testing.T) {
	host := &fakeDestroyer{failOn: "YelpCamp/b"}
	body, _ := json.Marshal(ImageCleanupEvent{
		CampgroundID: 7,
		Filenames:    []string{"YelpCamp/a", "YelpCamp/b", "YelpCamp/c"},
	})

	if err := handleMessage(body, host); err == nil {
		t.Fatal("expected error so the delivery is requeued")
	}
	// Progress before the failure is kept; the idempotent destroy makes the
	// redelivery safe.
	if len(host.destroyed) != 1 || host.destroyed[0] != "YelpCamp/a" {
		t.Errorf("destroyed = %v", host.destroyed)
	}
}

func TestHandleMessageMalformedDropped(t *testing.T) {
	host := &fakeDestroyer{}
	if err := handleMessage([]byte("{not json"), host); err != nil {
		t.Errorf("malformed event should be dropped, got %v", err)
	}
	if len(host.destroyed) != 0 {
		t.Errorf("destroyed = %v", host.destroyed)
	}
}
