package model

import "testing"

func TestDisplayName(t *testing.T) {
	me := &User{UID: "abcdefghijkl", DisplayName: "Sam"}
	anon := &User{UID: "abcdefghijkl"}

	tests := []struct {
		name    string
		author  string
		current *User
		want    string
	}{
		{"own with name", "abcdefghijkl", me, "Sam (You)"},
		{"own without name", "abcdefghijkl", anon, "Anonabcdefgh (You)"},
		{"someone else", "zyxwvutsrqpo", me, "Anonzyxwvuts"},
		{"signed out", "zyxwvutsrqpo", nil, "Anonzyxwvuts"},
		{"short id", "abc", nil, "Anonabc"},
	}

	for _, tt := range tests {
		if got := DisplayName(tt.author, tt.current); got != tt.want {
			t.Errorf("%s: DisplayName() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestValidVote(t *testing.T) {
	for v, want := range map[int]bool{1: true, -1: true, 0: false, 2: false, -2: false} {
		if got := ValidVote(v); got != want {
			t.Errorf("ValidVote(%d) = %v, want %v", v, got, want)
		}
	}
}
