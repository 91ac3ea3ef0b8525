package lctable

import "testing"

const sampleImage = `
schema:
  major: 1
  minor: 0
  patch: 0
watchpoints:
  - data_type: u16be
    operator: ">"
    message_id: 1
    offset: 12
    bit_mask: 65535
    comparison_value:
      int: 100
    result_age_when_stale: 5
actionpoints:
  - default_state: ACTIVE
    rts_id: 7
    max_fails_before_rts: 3
    rpn_equation: ["wp:0", "END"]
    event_id: 1
`

func TestLoadImage(t *testing.T) {
	tables, err := LoadImage([]byte(sampleImage))
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if len(tables.Watchpoints) != 1 {
		t.Fatalf("len(Watchpoints) = %d, want 1", len(tables.Watchpoints))
	}
	wp := tables.Watchpoints[0]
	if wp.DataType != U16BE || wp.Operator != OpGT || wp.Offset != 12 {
		t.Errorf("watchpoint decoded wrong: %+v", wp)
	}
	if wp.ComparisonValue.Bits != 100 {
		t.Errorf("ComparisonValue.Bits = %d, want 100", wp.ComparisonValue.Bits)
	}

	if len(tables.Actionpoints) != 1 {
		t.Fatalf("len(Actionpoints) = %d, want 1", len(tables.Actionpoints))
	}
	ap := tables.Actionpoints[0]
	if ap.DefaultState != StateActive || ap.RTSId != 7 || ap.MaxFailsBeforeRTS != 3 {
		t.Errorf("actionpoint decoded wrong: %+v", ap)
	}
	if len(ap.RPNEquation) != 2 || ap.RPNEquation[0].Kind != TokWatchpoint || ap.RPNEquation[0].WPIndex != 0 {
		t.Errorf("rpn equation decoded wrong: %+v", ap.RPNEquation)
	}
}

func TestLoadImageRejectsOldSchema(t *testing.T) {
	old := `
schema:
  major: 0
  minor: 9
  patch: 0
watchpoints: []
actionpoints: []
`
	if _, err := LoadImage([]byte(old)); err == nil {
		t.Fatal("expected rejection of a pre-minimum schema version")
	}
}

func TestSchemaVersionCompare(t *testing.T) {
	cases := []struct {
		a, b SchemaVersion
		want int
	}{
		{SchemaVersion{1, 0, 0}, SchemaVersion{1, 0, 0}, 0},
		{SchemaVersion{1, 0, 0}, SchemaVersion{1, 1, 0}, -1},
		{SchemaVersion{2, 0, 0}, SchemaVersion{1, 9, 9}, 1},
	}
	for _, c := range cases {
		if got := c.a.Compare(c.b); got != c.want {
			t.Errorf("%+v.Compare(%+v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
