package codec

import (
	"errors"
	"testing"

	"farmhand.ai/internal/protocol"
)

func mustLoad(t *testing.T) *Registry {
	t.Helper()
	r, err := Load(DefaultCatalog, protocol.Types())
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}
	return r
}

func TestLoad_DefaultCatalog(t *testing.T) {
	r := mustLoad(t)
	if got, want := len(r.Types()), len(protocol.Types()); got != want {
		t.Fatalf("registered %d types, want %d", got, want)
	}
	resp, ok := r.ResponseType(protocol.TypeHarvestReq)
	if !ok || resp != protocol.TypeHarvestResp {
		t.Fatalf("HARVEST_REQ response = %q, %v", resp, ok)
	}
	if !r.IsPush(protocol.TypeLandsPush) {
		t.Fatalf("LANDS_PUSH not marked as push")
	}
	if r.IsPush(protocol.TypeLandsResp) {
		t.Fatalf("LANDS_RESP wrongly marked as push")
	}
}

func TestVerify_AllTypesRoundTrip(t *testing.T) {
	r := mustLoad(t)
	for _, res := range r.VerifyEach() {
		if res.Err != nil {
			t.Errorf("%s: %v", res.Type, res.Err)
		}
	}
}

func TestLoad_CatalogFactoryMismatch(t *testing.T) {
	// A catalogue entry with no Go factory must fail up front.
	cat := []byte(`
types:
  GHOST_REQ:
    schema:
      type: object
`)
	_, err := Load(cat, map[string]func() any{})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SchemaError", err)
	}

	// And so must a factory with no catalogue entry.
	_, err = Load(cat, map[string]func() any{
		"GHOST_REQ": func() any { return &struct{}{} },
		"ORPHAN":    func() any { return &struct{}{} },
	})
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SchemaError", err)
	}
}

func TestLoad_UndefinedResponseType(t *testing.T) {
	cat := []byte(`
types:
  PING_REQ:
    response: PING_RESP
    schema:
      type: object
`)
	_, err := Load(cat, map[string]func() any{
		"PING_REQ": func() any { return &struct{}{} },
	})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SchemaError", err)
	}
}

func TestEncode_UnknownType(t *testing.T) {
	r := mustLoad(t)
	_, err := r.Encode("NO_SUCH_TYPE", struct{}{})
	var ute *UnknownTypeError
	if !errors.As(err, &ute) {
		t.Fatalf("err = %v, want *UnknownTypeError", err)
	}
	_, err = r.Decode("NO_SUCH_TYPE", []byte(`{}`))
	if !errors.As(err, &ute) {
		t.Fatalf("err = %v, want *UnknownTypeError", err)
	}
}

func TestDecode_MalformedBytes(t *testing.T) {
	r := mustLoad(t)

	var ce *CodecError
	if _, err := r.Decode(protocol.TypeHarvestReq, []byte(`not json`)); !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CodecError", err)
	}
	// Valid JSON, wrong grammar: land_id must be an integer.
	if _, err := r.Decode(protocol.TypeHarvestReq, []byte(`{"land_id":"three"}`)); !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *CodecError", err)
	}
}

func TestEncode_Decode_RoundTrip(t *testing.T) {
	r := mustLoad(t)

	in := &protocol.LandsResp{
		UID: "u100",
		Lands: []protocol.LandInfo{
			{ID: 1, Unlocked: true, Plant: &protocol.PlantInfo{
				CropID:   7,
				CropName: "carrot",
				Phases: []protocol.PhaseRecord{
					{Phase: 1, BeginTime: 1000},
					{Phase: 6, BeginTime: 1600},
				},
			}},
			{ID: 2, Unlocked: false},
		},
	}
	b, err := r.Encode(protocol.TypeLandsResp, in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, err := r.Decode(protocol.TypeLandsResp, b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, ok := v.(*protocol.LandsResp)
	if !ok {
		t.Fatalf("decoded %T, want *protocol.LandsResp", v)
	}
	if len(out.Lands) != 2 || out.Lands[0].Plant == nil || out.Lands[0].Plant.CropName != "carrot" {
		t.Fatalf("round trip lost data: %+v", out)
	}
}

func TestDescribe_ExplicitAndScan(t *testing.T) {
	r := mustLoad(t)

	b, err := r.Encode(protocol.TypeSellReq, &protocol.SellReq{ItemID: 5, Count: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	name, v, err := r.Describe(b, protocol.TypeSellReq)
	if err != nil || name != protocol.TypeSellReq {
		t.Fatalf("describe explicit: %q, %v", name, err)
	}
	if v.(*protocol.SellReq).Count != 3 {
		t.Fatalf("describe lost payload: %+v", v)
	}

	// Scan mode returns the first structural match in name order; an
	// explicit candidate stays the tool for exact identification.
	name, _, err = r.Describe(b, "")
	if err != nil {
		t.Fatalf("describe scan: %v", err)
	}
	if name == "" {
		t.Fatalf("describe scan returned empty type")
	}

	if _, _, err := r.Describe([]byte(`[1,2,3]`), ""); err == nil {
		t.Fatalf("describe of non-object blob should fail")
	}
}
