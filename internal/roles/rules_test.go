package roles

import (
	"testing"

	"github.com/fosspulse/fosspulse/config"
)

func TestIsBot(t *testing.T) {
	params := config.DefaultRoleParams()
	params.BotNames = append(params.BotNames, "ci-robot")
	r := &rules{params: params}

	tests := []struct {
		login string
		want  bool
	}{
		{"dependabot[bot]", true},
		{"some-new-thing[bot]", true},
		{"renovate", true},
		{"Renovate", true},
		{"github-actions", true},
		{"ci-robot", true},
		{"alice", false},
		{"robotnik", false}, // substring matches don't count
		{"ghost", false},    // deleted account, not an automation
	}
	for _, tt := range tests {
		t.Run(tt.login, func(t *testing.T) {
			if got := r.isBot(tt.login); got != tt.want {
				t.Errorf("isBot(%q) = %v, want %v", tt.login, got, tt.want)
			}
		})
	}
}

func TestIsDocFile(t *testing.T) {
	r := &rules{params: config.DefaultRoleParams()}

	tests := []struct {
		path string
		want bool
	}{
		{"docs/guide.md", true},
		{"doc/api/overview.rst", true},
		{"README.md", true},
		{"README", true},
		{"readme.txt", true},
		{"LICENSE", true},
		{"CHANGELOG.adoc", true},
		{"internal/notes.md", true}, // suffix match outside docs dirs
		{"main.go", false},
		{"docsite.go", false}, // prefix requires the slash
		{"cmd/readme_gen.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := r.isDocFile(tt.path); got != tt.want {
				t.Errorf("isDocFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsDocsOnly(t *testing.T) {
	r := &rules{params: config.DefaultRoleParams()}

	tests := []struct {
		name  string
		files []string
		want  bool
	}{
		{"all docs", []string{"docs/a.md", "README.md"}, true},
		{"mixed", []string{"docs/a.md", "main.go"}, false},
		{"all code", []string{"main.go", "store.go"}, false},
		{"no file data", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.isDocsOnly(tt.files); got != tt.want {
				t.Errorf("isDocsOnly(%v) = %v, want %v", tt.files, got, tt.want)
			}
		})
	}
}
