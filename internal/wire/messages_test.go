package wire_test

import (
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Portunus/evacsim/internal/evac/types"
	"github.com/BrandonDHaskell/Portunus/evacsim/internal/wire"
)

// ── DB_SYNC ──────────────────────────────────────────────────────────────────

func TestDBSync_CarriesEveryRecord(t *testing.T) {
	db := types.BadgeDatabase{
		101: {ID: 101, Name: "Alice", AuthorizedBuildings: []int{1, 2}},
		102: {ID: 102, Name: "Bob", AuthorizedBuildings: []int{3}},
		103: {ID: 103, Name: "Chloé", AuthorizedBuildings: nil},
	}

	got, err := wire.DecodeDBSync(wire.EncodeDBSync(db))
	if err != nil {
		t.Fatalf("DecodeDBSync: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if !reflect.DeepEqual(got[101].AuthorizedBuildings, []int{1, 2}) {
		t.Errorf("unexpected buildings for 101: %v", got[101].AuthorizedBuildings)
	}
	if got[103].Name != "Chloé" {
		t.Errorf("expected name Chloé, got %q", got[103].Name)
	}
	if len(got[103].AuthorizedBuildings) != 0 {
		t.Errorf("expected no buildings for 103, got %v", got[103].AuthorizedBuildings)
	}
}

func TestDBSync_EmptyDatabase(t *testing.T) {
	got, err := wire.DecodeDBSync(wire.EncodeDBSync(types.BadgeDatabase{}))
	if err != nil {
		t.Fatalf("DecodeDBSync: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty database, got %d records", len(got))
	}
}

func TestDBSync_CountMismatchRejected(t *testing.T) {
	one := wire.EncodeDBSync(types.BadgeDatabase{7: {ID: 7, Name: "x"}})

	// Overwrite the header: claim three records while only one follows.
	var forged []byte
	forged = protowire.AppendTag(forged, 1, protowire.VarintType)
	forged = protowire.AppendVarint(forged, 3)
	_, _, n := protowire.ConsumeTag(one)
	_, m := protowire.ConsumeVarint(one[n:])
	forged = append(forged, one[n+m:]...)

	_, err := wire.DecodeDBSync(forged)
	if !errors.Is(err, wire.ErrCountMismatch) {
		t.Fatalf("expected ErrCountMismatch, got %v", err)
	}
}

func TestDBSync_TruncatedPayload(t *testing.T) {
	full := wire.EncodeDBSync(types.BadgeDatabase{
		101: {ID: 101, Name: "Alice", AuthorizedBuildings: []int{1, 2}},
	})
	if _, err := wire.DecodeDBSync(full[:len(full)-3]); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

// ── Presence report ──────────────────────────────────────────────────────────

func TestPresenceReport_PreservesOrder(t *testing.T) {
	in := types.PresenceReport{Names: []string{"Zoe", "Adam", "Mia"}}
	got, err := wire.DecodePresenceReport(wire.EncodePresenceReport(in))
	if err != nil {
		t.Fatalf("DecodePresenceReport: %v", err)
	}
	if !reflect.DeepEqual(got.Names, in.Names) {
		t.Errorf("expected %v, got %v", in.Names, got.Names)
	}
}

func TestPresenceReport_EmptyIsNotNil(t *testing.T) {
	got, err := wire.DecodePresenceReport(wire.EncodePresenceReport(types.PresenceReport{}))
	if err != nil {
		t.Fatalf("DecodePresenceReport: %v", err)
	}
	if got.Names == nil || len(got.Names) != 0 {
		t.Errorf("expected empty non-nil names, got %#v", got.Names)
	}
}

// ── Access ───────────────────────────────────────────────────────────────────

func TestAccessResponse_DenialIsExplicit(t *testing.T) {
	b := wire.EncodeAccessResponse(types.AccessResponse{Outcome: types.Denied})
	if len(b) == 0 {
		t.Fatal("expected a non-empty payload for a denial")
	}
	got, err := wire.DecodeAccessResponse(b)
	if err != nil {
		t.Fatalf("DecodeAccessResponse: %v", err)
	}
	if got.Outcome != types.Denied {
		t.Errorf("expected denied, got %v", got.Outcome)
	}
}

func TestAccessResponse_EmptyPayloadRejected(t *testing.T) {
	if _, err := wire.DecodeAccessResponse(nil); err == nil {
		t.Fatal("expected error for empty response payload")
	}
}

func TestAccessRequest_WrongWireTypeRejected(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "101")

	_, err := wire.DecodeAccessRequest(b)
	if !errors.Is(err, wire.ErrWrongType) {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}
}

func TestSimCommand_UnknownFieldsSkipped(t *testing.T) {
	b := wire.EncodeSimCommand(types.SimCommand{BadgeID: 101, TargetBuilding: 2, Action: types.ActionExit})
	b = protowire.AppendTag(b, 15, protowire.BytesType)
	b = protowire.AppendString(b, "future field")

	got, err := wire.DecodeSimCommand(b)
	if err != nil {
		t.Fatalf("DecodeSimCommand: %v", err)
	}
	if got.BadgeID != 101 || got.TargetBuilding != 2 || got.Action != types.ActionExit {
		t.Errorf("unexpected command: %+v", got)
	}
}

func TestEnvelope_NegativeRankSurvives(t *testing.T) {
	e := wire.Envelope{ID: "abc", From: -1, To: 3, Tag: 60, Payload: []byte("hi")}
	got, err := wire.DecodeEnvelope(wire.EncodeEnvelope(e))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if !reflect.DeepEqual(got, e) {
		t.Errorf("expected %+v, got %+v", e, got)
	}
}
