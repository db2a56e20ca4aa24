package core

import (
	"gaugecode-go/bus"
	"gaugecode-go/errcode"
	"gaugecode-go/types"
)

// Everything HAL puts on the bus goes through these helpers; retained state
// (info, status, value) and replies share one connection.

func (h *HAL) replyOK(m *bus.Message) {
	if m.CanReply() {
		h.conn.Reply(m, types.OKReply{OK: true}, false)
	}
}

func (h *HAL) replyErr(m *bus.Message, code errcode.Code) {
	if !m.CanReply() {
		return
	}
	h.conn.Reply(m, types.ErrorReply{OK: false, Error: string(mapOr(code, errcode.Error))}, false)
}

func (h *HAL) pubInfo(a CapAddr, info any) {
	h.conn.Publish(h.conn.NewMessage(capInfo(a), info, true))
}

func (h *HAL) pubStatus(a CapAddr, link types.Link, ts int64, code string) {
	h.conn.Publish(h.conn.NewMessage(
		capStatus(a),
		types.CapabilityStatus{Link: link, TS: ts, Error: code},
		true,
	))
}

func (h *HAL) pubValue(a CapAddr, v any, ts int64) {
	h.conn.Publish(h.conn.NewMessage(capValue(a), v, true))
	h.pubStatus(a, types.LinkUp, ts, "")
}

func mapOr(c, def errcode.Code) errcode.Code {
	if c == "" {
		return def
	}
	return c
}
