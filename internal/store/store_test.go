package store

import (
	"testing"
	"time"
)

func TestParsePercentage(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "33.33", want: "33.33"},
		{raw: "100.00", want: "100"},
		{raw: "0.5", want: "0.5"},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parsePercentage(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got.String())
			}
		})
	}
}

func TestDateOnlyDropsClockAndZone(t *testing.T) {
	in := time.Date(2025, time.March, 9, 23, 30, 0, 0, time.FixedZone("x", 3600))
	got := dateOnly(in)
	want := time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
