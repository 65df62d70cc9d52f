package world

import (
	"encoding/json"

	"propworks.ai/internal/protocol"
)

func (w *World) buildState(nowTick uint64) protocol.StateMsg {
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Score:           w.score.Load(),
		Objects:         make([]protocol.ObjectState, 0, w.objects.Len()),
		Players:         make([]protocol.PlayerState, 0, len(w.players)),
	}
	for _, id := range w.objects.sortedIDs() {
		o, _ := w.objects.view(id)
		st := protocol.ObjectState{
			ID:    o.ID,
			Kind:  string(o.Kind),
			Pos:   w.objectPos(o),
			Color: o.Color,
		}
		if holder, ok := w.owners.HolderOf(id); ok {
			st.HeldBy = holder
			if o.Drive != nil {
				a := [3]float64(o.Drive.Anchor)
				st.Anchor = &a
			}
		}
		msg.Objects = append(msg.Objects, st)
	}
	for _, id := range w.sortedPlayerIDs() {
		p := w.players[id]
		st := protocol.PlayerState{ID: p.ID, Name: p.Name, Pos: p.Pos}
		if obj, ok := w.owners.HeldBy(id); ok {
			st.Holding = obj
		}
		msg.Players = append(msg.Players, st)
	}
	return msg
}

func (w *World) broadcastState(nowTick uint64) {
	if len(w.clients) == 0 {
		return
	}
	msg := w.buildState(nowTick)
	for id, cl := range w.clients {
		msg.PlayerID = id
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(cl.Out, b)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
