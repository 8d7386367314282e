package registry

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, time.March, 7)

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-03-07"` {
		t.Fatalf("marshal = %s, want \"2024-03-07\"", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip = %v, want %v", back, d)
	}
}

func TestDateUnmarshalRejectsGarbage(t *testing.T) {
	for _, in := range []string{`"07/03/2024"`, `"2024-13-01"`, `"not a date"`} {
		var d Date
		if err := json.Unmarshal([]byte(in), &d); err == nil {
			t.Fatalf("unmarshal %s: want error", in)
		}
	}
}

func TestDateOfTruncates(t *testing.T) {
	d := DateOf(time.Date(2024, 6, 1, 23, 45, 12, 0, time.UTC))
	if d.String() != "2024-06-01" {
		t.Fatalf("DateOf = %s, want 2024-06-01", d)
	}
}

func TestPatientFullName(t *testing.T) {
	p := &Patient{FirstName: "Mario", LastName: "Rossi"}
	if got := p.FullName(); got != "Mario Rossi" {
		t.Fatalf("FullName = %q", got)
	}
}

func TestPatientJSONHidesUserID(t *testing.T) {
	p := &Patient{ID: 1, UserID: "user-1", FirstName: "Anna", LastName: "Bianchi"}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["user_id"]; ok {
		t.Fatal("user_id must not be serialized")
	}
}
