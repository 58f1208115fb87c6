package urlutil

import "testing"

func TestExtractIssueNumber(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    int
		wantErr bool
	}{
		{name: "issue URL", url: "https://api.github.com/repos/octocat/hello/issues/123", want: 123},
		{name: "pull URL", url: "https://api.github.com/repos/octocat/hello/pulls/9", want: 9},
		{name: "not a number", url: "https://api.github.com/repos/octocat/hello/issues/abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractIssueNumber(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSplitRepoRef(t *testing.T) {
	tests := []struct {
		name      string
		ref       string
		wantOwner string
		wantName  string
		wantErr   bool
	}{
		{name: "simple", ref: "octocat/hello", wantOwner: "octocat", wantName: "hello"},
		{name: "trailing slash", ref: "octocat/hello/", wantOwner: "octocat", wantName: "hello"},
		{name: "missing name", ref: "octocat", wantErr: true},
		{name: "empty owner", ref: "/hello", wantErr: true},
		{name: "too many parts", ref: "a/b/c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, name, err := SplitRepoRef(tt.ref)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if owner != tt.wantOwner || name != tt.wantName {
				t.Errorf("expected %s/%s, got %s/%s", tt.wantOwner, tt.wantName, owner, name)
			}
		})
	}
}
