package model

import (
	"encoding/json"
	"testing"
)

func TestNullableUnmarshal(t *testing.T) {
	var body struct {
		Description Nullable[string] `json:"description"`
		ProjectID   Nullable[int64]  `json:"project_id"`
		Missing     Nullable[string] `json:"missing"`
	}
	if err := json.Unmarshal([]byte(`{"description":"hello","project_id":null}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !body.Description.Set || !body.Description.Valid || body.Description.Value != "hello" {
		t.Fatalf("unexpected description: %+v", body.Description)
	}
	if !body.ProjectID.Set || body.ProjectID.Valid {
		t.Fatalf("expected explicit null project_id: %+v", body.ProjectID)
	}
	if body.ProjectID.Ptr() != nil {
		t.Fatal("expected nil pointer for null")
	}
	if body.Missing.Set {
		t.Fatal("expected absent field to stay unset")
	}
}

func TestNullableUnmarshalTypeError(t *testing.T) {
	var body struct {
		ProjectID Nullable[int64] `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(`{"project_id":"abc"}`), &body); err == nil {
		t.Fatal("expected type error")
	}
}

func TestNullableMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Nullable[int64] `json:"a"`
		B Nullable[int64] `json:"b"`
	}{A: NullableOf[int64](3), B: NullOf[int64]()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":3,"b":null}` {
		t.Fatalf("unexpected json %s", out)
	}
}
