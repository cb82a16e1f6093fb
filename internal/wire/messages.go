package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
)

// ── DB_SYNC ──────────────────────────────────────────────────────────────────

// EncodeDBSync writes the whole database in ascending badge id order.
func EncodeDBSync(db types.BadgeDatabase) []byte {
	b := appendInt(nil, 1, len(db))
	for _, id := range db.IDs() {
		b = appendBytes(b, 2, encodeBadge(db[id]))
	}
	return b
}

func DecodeDBSync(b []byte) (types.BadgeDatabase, error) {
	count := -1
	db := make(types.BadgeDatabase)
	received := 0
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			c, n, err := consumeInt(typ, v)
			count = c
			return n, err
		case 2:
			raw, n, err := consumeBytes(typ, v)
			if err != nil {
				return 0, err
			}
			rec, err := decodeBadge(raw)
			if err != nil {
				return 0, err
			}
			db[rec.ID] = rec
			received++
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode db sync: %w", err)
	}
	if count != received {
		return nil, fmt.Errorf("decode db sync: header %d, got %d: %w", count, received, ErrCountMismatch)
	}
	return db, nil
}

func encodeBadge(rec types.BadgeRecord) []byte {
	b := appendInt(nil, 1, rec.ID)
	b = appendString(b, 2, rec.Name)
	return appendPackedInts(b, 3, rec.AuthorizedBuildings)
}

func decodeBadge(b []byte) (types.BadgeRecord, error) {
	var rec types.BadgeRecord
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			id, n, err := consumeInt(typ, v)
			rec.ID = id
			return n, err
		case 2:
			name, n, err := consumeBytes(typ, v)
			rec.Name = string(name)
			return n, err
		case 3:
			ids, n, err := consumePackedInts(typ, v)
			rec.AuthorizedBuildings = ids
			return n, err
		}
		return 0, nil
	})
	return rec, err
}

// ── ACCESS_REQUEST / ACCESS_RESPONSE ─────────────────────────────────────────

func EncodeAccessRequest(req types.AccessRequest) []byte {
	b := appendInt(nil, 1, req.BadgeID)
	return appendInt(b, 2, int(req.Action))
}

func DecodeAccessRequest(b []byte) (types.AccessRequest, error) {
	var req types.AccessRequest
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			id, n, err := consumeInt(typ, v)
			req.BadgeID = id
			return n, err
		case 2:
			a, n, err := consumeInt(typ, v)
			req.Action = types.Action(a)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return types.AccessRequest{}, fmt.Errorf("decode access request: %w", err)
	}
	return req, nil
}

// EncodeAccessResponse always writes the outcome field, even for a denial,
// so an empty payload is never a valid response.
func EncodeAccessResponse(resp types.AccessResponse) []byte {
	return appendInt(nil, 1, int(resp.Outcome))
}

func DecodeAccessResponse(b []byte) (types.AccessResponse, error) {
	var resp types.AccessResponse
	seen := false
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		o, n, err := consumeInt(typ, v)
		resp.Outcome = types.Outcome(o)
		seen = true
		return n, err
	})
	if err == nil && !seen {
		err = fmt.Errorf("missing outcome")
	}
	if err != nil {
		return types.AccessResponse{}, fmt.Errorf("decode access response: %w", err)
	}
	return resp, nil
}

// ── FIRE_TRIGGER / PRESENCE_REPORT ───────────────────────────────────────────

func EncodeFireTrigger(ft types.FireTrigger) []byte {
	return appendInt(nil, 1, ft.BuildingID)
}

func DecodeFireTrigger(b []byte) (types.FireTrigger, error) {
	var ft types.FireTrigger
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		id, n, err := consumeInt(typ, v)
		ft.BuildingID = id
		return n, err
	})
	if err != nil {
		return types.FireTrigger{}, fmt.Errorf("decode fire trigger: %w", err)
	}
	return ft, nil
}

func EncodePresenceReport(r types.PresenceReport) []byte {
	b := appendInt(nil, 1, len(r.Names))
	for _, name := range r.Names {
		b = appendString(b, 2, name)
	}
	return b
}

func DecodePresenceReport(b []byte) (types.PresenceReport, error) {
	count := -1
	r := types.PresenceReport{Names: []string{}}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			c, n, err := consumeInt(typ, v)
			count = c
			return n, err
		case 2:
			name, n, err := consumeBytes(typ, v)
			r.Names = append(r.Names, string(name))
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return types.PresenceReport{}, fmt.Errorf("decode presence report: %w", err)
	}
	if count != len(r.Names) {
		return types.PresenceReport{}, fmt.Errorf("decode presence report: header %d, got %d: %w", count, len(r.Names), ErrCountMismatch)
	}
	return r, nil
}

// ── LOG_APPEND / SIM_COMMAND / HELLO ─────────────────────────────────────────

func EncodeLogAppend(l types.LogAppend) []byte {
	return appendString(nil, 1, l.Text)
}

func DecodeLogAppend(b []byte) (types.LogAppend, error) {
	var l types.LogAppend
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		text, n, err := consumeBytes(typ, v)
		l.Text = string(text)
		return n, err
	})
	if err != nil {
		return types.LogAppend{}, fmt.Errorf("decode log append: %w", err)
	}
	return l, nil
}

func EncodeSimCommand(c types.SimCommand) []byte {
	b := appendInt(nil, 1, c.BadgeID)
	b = appendInt(b, 2, c.TargetBuilding)
	return appendInt(b, 3, int(c.Action))
}

func DecodeSimCommand(b []byte) (types.SimCommand, error) {
	var c types.SimCommand
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			id, n, err := consumeInt(typ, v)
			c.BadgeID = id
			return n, err
		case 2:
			id, n, err := consumeInt(typ, v)
			c.TargetBuilding = id
			return n, err
		case 3:
			a, n, err := consumeInt(typ, v)
			c.Action = types.Action(a)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return types.SimCommand{}, fmt.Errorf("decode sim command: %w", err)
	}
	return c, nil
}

func EncodeHello(h types.Hello) []byte {
	b := appendInt(nil, 1, int(h.Role))
	return appendInt(b, 2, h.Index)
}

func DecodeHello(b []byte) (types.Hello, error) {
	var h types.Hello
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			r, n, err := consumeInt(typ, v)
			h.Role = types.Role(r)
			return n, err
		case 2:
			i, n, err := consumeInt(typ, v)
			h.Index = i
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return types.Hello{}, fmt.Errorf("decode hello: %w", err)
	}
	return h, nil
}
