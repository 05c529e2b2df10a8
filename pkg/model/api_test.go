package model

import "testing"

func TestListOptions_Clamp(t *testing.T) {
	tests := []struct {
		name       string
		input      ListOptions
		wantLimit  int
		wantOffset int
	}{
		{"zero", ListOptions{}, 20, 0},
		{"negative limit", ListOptions{Limit: -1}, 20, 0},
		{"over max", ListOptions{Limit: 500}, 100, 0},
		{"negative offset", ListOptions{Limit: 5, Offset: -10}, 5, 0},
		{"in range", ListOptions{Limit: 30, Offset: 60}, 30, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Clamp()
			if tt.input.Limit != tt.wantLimit || tt.input.Offset != tt.wantOffset {
				t.Errorf("Clamp() = (%d, %d), want (%d, %d)",
					tt.input.Limit, tt.input.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}
