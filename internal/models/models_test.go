package models

import (
	"testing"
)

func TestCategory_IsMain(t *testing.T) {
	parent := "c0"

	tests := []struct {
		name     string
		category Category
		want     bool
	}{
		{"allow-listed top level", Category{Name: "Trees"}, true},
		{"allow-listed with ampersand", Category{Name: "Hedging & Screening"}, true},
		{"has parent", Category{Name: "Trees", ParentID: &parent}, false},
		{"not allow-listed", Category{Name: "Clearance"}, false},
		{"case matters", Category{Name: "trees"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.category.IsMain(); got != tt.want {
				t.Errorf("IsMain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDedupeCategoriesByName(t *testing.T) {
	in := []*CategoryWithCount{
		{Category: Category{ID: "a", Name: "Trees"}},
		{Category: Category{ID: "b", Name: "Shrubs"}},
		{Category: Category{ID: "c", Name: " trees "}},
		{Category: Category{ID: "d", Name: "Natives"}},
	}

	out := DedupeCategoriesByName(in)

	if len(out) != 3 {
		t.Fatalf("Expected 3 categories, got %d", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "b" || out[2].ID != "d" {
		t.Errorf("Expected first occurrence kept in order, got %s %s %s", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestJobStatus_IsTerminal(t *testing.T) {
	for _, s := range AllJobStatuses {
		want := s == JobStatusCompleted || s == JobStatusFailed
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v", s, !want)
		}
	}
}

func TestJSONMap_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		wantLen int
		wantErr bool
	}{
		{"nil", nil, 0, false},
		{"bytes", []byte(`{"stopped":true,"source":"plantmark-api"}`), 2, false},
		{"string", `{"durationMs":1200}`, 1, false},
		{"empty bytes", []byte{}, 0, false},
		{"bad json", []byte(`{`), 0, true},
		{"unsupported", 42, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m JSONMap
			err := m.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(m) != tt.wantLen {
				t.Errorf("Expected %d keys, got %d", tt.wantLen, len(m))
			}
		})
	}
}

func TestJSONMap_Value(t *testing.T) {
	var empty JSONMap
	v, err := empty.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	if string(v.([]byte)) != "{}" {
		t.Errorf("Expected {} for nil map, got %s", v)
	}

	v, _ = JSONMap{JobMetaStopped: true}.Value()
	if string(v.([]byte)) != `{"stopped":true}` {
		t.Errorf("Unexpected encoding %s", v)
	}
}

func TestJSONMap_Bool(t *testing.T) {
	m := JSONMap{"yes": true, "no": false, "text": "true"}

	if !m.Bool("yes") {
		t.Error("Expected true")
	}
	if m.Bool("no") || m.Bool("text") || m.Bool("missing") {
		t.Error("Only a real true counts")
	}
}
