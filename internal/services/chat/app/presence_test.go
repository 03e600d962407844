package server

import (
	"encoding/json"
	"testing"
)

func collectStatusFrames(frames *[]wsFrame) func(wsFrame) {
	return func(frame wsFrame) {
		*frames = append(*frames, frame)
	}
}

func decodeStatus(t *testing.T, frame wsFrame) userStatusPayload {
	t.Helper()
	var payload userStatusPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		t.Fatalf("decode status payload: %v", err)
	}
	return payload
}

func TestPresenceAnnouncesOnlineOnceAcrossTabs(t *testing.T) {
	var frames []wsFrame
	notifier := newPresenceNotifier(collectStatusFrames(&frames))

	notifier.connectionOpened(7, true)
	notifier.connectionOpened(7, false)

	if len(frames) != 1 {
		t.Fatalf("status frames = %d, want 1", len(frames))
	}
	payload := decodeStatus(t, frames[0])
	if payload.UserID != 7 || payload.Status != "online" {
		t.Fatalf("payload = %+v, want user 7 online", payload)
	}
}

func TestPresenceAnnouncesOfflineOnlyOnLastConnection(t *testing.T) {
	var frames []wsFrame
	notifier := newPresenceNotifier(collectStatusFrames(&frames))

	notifier.connectionClosed(7, true, false)
	if len(frames) != 0 {
		t.Fatal("closing one of two tabs must not announce offline")
	}

	notifier.connectionClosed(7, true, true)
	if len(frames) != 1 {
		t.Fatalf("status frames = %d, want 1", len(frames))
	}
	payload := decodeStatus(t, frames[0])
	if payload.Status != "offline" {
		t.Fatalf("status = %q, want offline", payload.Status)
	}
}

func TestPresenceIgnoresUntrackedDisconnect(t *testing.T) {
	var frames []wsFrame
	notifier := newPresenceNotifier(collectStatusFrames(&frames))

	notifier.connectionClosed(7, false, false)
	if len(frames) != 0 {
		t.Fatal("untracked disconnect must not announce anything")
	}
}
