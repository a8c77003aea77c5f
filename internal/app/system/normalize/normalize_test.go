package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "USER@EXAMPLE.COM"},
		{"  User@Example.Com  ", "USER@EXAMPLE.COM"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUserName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"alice", "ALICE"},
		{"Ålice", "ÅLICE"},
		{"  bob smith ", "BOB SMITH"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := UserName(tt.input); got != tt.want {
				t.Errorf("UserName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRoleName(t *testing.T) {
	if got := RoleName("admin"); got != "ADMIN" {
		t.Errorf("RoleName(admin) = %q", got)
	}
}
