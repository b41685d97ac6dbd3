package drush

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/config"
)

func TestStack_Drush(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Stack
		cmd   string
		want  []string
	}{
		{
			name:  "bare command",
			build: func() *Stack { return New("") },
			cmd:   "status",
			want:  []string{"status", "-y"},
		},
		{
			name: "root and uri",
			build: func() *Stack {
				return New("drush").DrupalRootDirectory("/srv/web").URI("default")
			},
			cmd:  "ups",
			want: []string{"-r", "/srv/web", "-l", "default", "ups", "-y"},
		},
		{
			name: "flag option",
			build: func() *Stack {
				return New("drush").Option("security-only")
			},
			cmd:  "ups",
			want: []string{"ups", "--security-only", "-y"},
		},
		{
			name: "valued option keeps spaces in one element",
			build: func() *Stack {
				return New("drush").Option("status", "disabled,not installed")
			},
			cmd:  "pml",
			want: []string{"pml", "--status=disabled,not installed", "-y"},
		},
		{
			name: "args before options",
			build: func() *Stack {
				return New("drush").Option("--full").Arg("hacked").Arg("security_review")
			},
			cmd:  "en",
			want: []string{"en", "hacked", "security_review", "--full", "-y"},
		},
		{
			name: "without assume yes",
			build: func() *Stack {
				return New("drush").AssumeYes(false)
			},
			cmd:  "sql:cli",
			want: []string{"sql:cli"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build().Drush(tt.cmd)
			if diff := cmp.Diff(tt.want, got.Arguments); diff != "" {
				t.Errorf("arguments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNew_DefaultBinary(t *testing.T) {
	if got := New("").Drush("status").Binary; got != DefaultBinary {
		t.Errorf("Binary = %q, want %q", got, DefaultBinary)
	}
}

func TestFromConfig(t *testing.T) {
	paths := config.Paths{Project: "/srv", DrupalRoot: "/srv/web", Site: "default"}
	cfg := config.DrushConfig{Binary: "/opt/drush", CacheClear: "cr", AssumeYes: true}

	cmd := FromConfig(cfg, paths).ClearCache()

	want := []string{"-r", "/srv/web", "-l", "default", "cr", "-y"}
	if diff := cmp.Diff(want, cmd.Arguments); diff != "" {
		t.Errorf("arguments mismatch (-want +got):\n%s", diff)
	}
	if cmd.Binary != "/opt/drush" {
		t.Errorf("Binary = %q", cmd.Binary)
	}
	if cmd.WorkingDirectory != "/srv" {
		t.Errorf("WorkingDirectory = %q", cmd.WorkingDirectory)
	}
	if cmd.Tags["drush_command"] != "cr" {
		t.Errorf("drush_command tag = %q", cmd.Tags["drush_command"])
	}
}

func TestFromConfig_DefaultCacheClear(t *testing.T) {
	cmd := FromConfig(config.DrushConfig{}, config.Paths{}).ClearCache()
	want := []string{DefaultCacheClear}
	if diff := cmp.Diff(want, cmd.Arguments); diff != "" {
		t.Errorf("arguments mismatch (-want +got):\n%s", diff)
	}
}
