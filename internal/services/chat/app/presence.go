package server

// presenceNotifier derives online/offline announcements from connection
// registry transitions and broadcasts them to every connection.
//
// The transition flags are computed by the registry under its own lock, so
// the notifier fires exactly once per offline→online transition and once per
// online→offline transition, no matter how many tabs a user has open.
type presenceNotifier struct {
	broadcast func(wsFrame)
}

func newPresenceNotifier(broadcast func(wsFrame)) *presenceNotifier {
	return &presenceNotifier{broadcast: broadcast}
}

// connectionOpened announces the user coming online when this was their
// first live connection.
func (n *presenceNotifier) connectionOpened(userID int64, firstConnection bool) {
	if !firstConnection {
		return
	}
	n.broadcast(userStatusFrame(userID, "online"))
}

// connectionClosed announces the user going offline when their last live
// connection closed. Double cleanup passes existed=false and is a no-op.
func (n *presenceNotifier) connectionClosed(userID int64, existed, lastConnection bool) {
	if !existed || !lastConnection {
		return
	}
	n.broadcast(userStatusFrame(userID, "offline"))
}

func userStatusFrame(userID int64, status string) wsFrame {
	return wsFrame{
		Type: eventUserStatus,
		Payload: mustJSON(userStatusPayload{
			UserID: userID,
			Status: status,
		}),
	}
}
