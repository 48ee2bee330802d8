package dbtypes

import "testing"

func TestStringListValuePreservesOrder(t *testing.T) {
	list := StringList{"4GB Daily Data", "Unlimited Calls", "100 SMS/day"}
	v, err := list.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}
	if v != `["4GB Daily Data","Unlimited Calls","100 SMS/day"]` {
		t.Fatalf("unexpected encoding %v", v)
	}

	var decoded StringList
	if err := decoded.Scan([]byte(v.(string))); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(decoded) != 3 || decoded[0] != "4GB Daily Data" || decoded[2] != "100 SMS/day" {
		t.Fatalf("unexpected decoded list %v", decoded)
	}
}

func TestStringListNilAndEmpty(t *testing.T) {
	var empty StringList
	v, err := empty.Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected empty json array, got %v %v", v, err)
	}

	var scanned StringList
	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("scan nil failed: %v", err)
	}
	if scanned == nil || len(scanned) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", scanned)
	}
}

func TestStringListRejectsUnsupportedType(t *testing.T) {
	var l StringList
	if err := l.Scan(42); err == nil {
		t.Fatal("expected error for int source")
	}
	if err := l.Scan("{not json"); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
