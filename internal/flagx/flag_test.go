package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-a", "localhost"},
			allowed: []string{"-c"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "inline value",
			args:    []string{"--config=alt.json", "-a", "localhost"},
			allowed: []string{"-config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "single and double dash name the same flag",
			args:    []string{"--b", "docs", "-b", "media"},
			allowed: []string{"-b"},
			want:    []string{"--b", "docs", "-b", "media"},
		},
		{
			name:    "order is preserved",
			args:    []string{"-a", ":50051", "-x", "1", "-b", "files", "positional"},
			allowed: []string{"-b", "-a"},
			want:    []string{"-a", ":50051", "-b", "files"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-x", "1", "--y=2", "positional", "-", "--"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "missing value at end",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next flag is not taken as value",
			args:    []string{"-c", "-b", "files"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "inline value does not consume the next argument",
			args:    []string{"-c=a.json", "b.json"},
			allowed: []string{"-c"},
			want:    []string{"-c=a.json"},
		},
		{
			name:    "empty args",
			args:    nil,
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short", args: []string{"-c", "/etc/filedrop.json"}, want: "/etc/filedrop.json"},
		{name: "long", args: []string{"-config", "/etc/long.json"}, want: "/etc/long.json"},
		{name: "double dash inline", args: []string{"--config=/etc/dd.json"}, want: "/etc/dd.json"},
		{name: "absent", args: []string{"-a", ":50051", "-b", "files"}, want: ""},
		{name: "last wins", args: []string{"-c", "/1.json", "-config", "/2.json"}, want: "/2.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}
