package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// stateDigest hashes everything that affects future ticks, in sorted order.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteI64(h, &tmp, w.score.Load())
	digestWriteU64(h, &tmp, w.nextPlayerNum.Load())
	digestWriteU64(h, &tmp, w.nextObjectNum.Load())
	digestWriteU64(h, &tmp, w.spawned.Load())

	w.digestObjects(h, &tmp)
	w.digestPlayers(h, &tmp)
	for _, pair := range w.owners.Pairs() {
		h.Write([]byte(pair.Object))
		h.Write([]byte(pair.Player))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) digestObjects(h hashWriter, tmp *[8]byte) {
	for _, id := range w.objects.sortedIDs() {
		o, _ := w.objects.view(id)
		h.Write([]byte(o.ID))
		h.Write([]byte(o.Kind))
		h.Write([]byte{byte(o.Caps()), byte(o.Policy), boolByte(o.Color != nil), boolByte(o.Drive != nil)})
		digestWriteU64(h, tmp, o.CreatedTick)
		digestWriteU64(h, tmp, o.ExpiresTick)
		if o.Color != nil {
			for _, c := range o.Color {
				digestWriteF64(h, tmp, c)
			}
		}
		if o.Drive != nil {
			digestWriteVec(h, tmp, o.Drive.Total)
		}
		if o.Body == 0 {
			digestWriteVec(h, tmp, o.Pos)
			continue
		}
		st, ok := w.phys.State(o.Body)
		if !ok {
			continue
		}
		digestWriteVec(h, tmp, st.Pos)
		digestWriteVec(h, tmp, st.Vel)
	}
}

func (w *World) digestPlayers(h hashWriter, tmp *[8]byte) {
	for _, id := range w.sortedPlayerIDs() {
		p := w.players[id]
		h.Write([]byte(p.ID))
		h.Write([]byte{boolByte(p.Rig != nil)})
		digestWriteU64(h, tmp, p.JoinedTick)
		digestWriteVec(h, tmp, p.Pos)
		for _, v := range quatToArray(p.Rot) {
			digestWriteF64(h, tmp, v)
		}
		for _, v := range quatToArray(p.HeadRot) {
			digestWriteF64(h, tmp, v)
		}
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteVec(h hashWriter, tmp *[8]byte, v mgl64.Vec3) {
	for _, c := range v {
		digestWriteF64(h, tmp, c)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
