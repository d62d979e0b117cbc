package store

import "testing"

func TestBuildKeys(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{BuildGameLockKey("g1"), "hukum:game:g1:lock"},
		{BuildSnapshotKey("g1"), "hukum:game:g1:snapshot"},
		{BuildSeatsKey("g1"), "hukum:game:g1:seats"},
		{BuildRosterKey("g1"), "hukum:game:g1:roster"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("期望 %s, 实际 = %s", tt.want, tt.got)
		}
	}
}
