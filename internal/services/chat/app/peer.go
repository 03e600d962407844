package server

import (
	"encoding/json"
	"sync"
)

// wsPeer serializes frame writes to a single websocket connection. The
// json.Encoder is not safe for concurrent use, and fan-out writes arrive
// from other connections' read loops.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}
