package platform

import "testing"

func TestForOS(t *testing.T) {
	tests := []struct {
		goos      string
		sep       byte
		list      byte
		caseFold  bool
		exeSuffix string
	}{
		{goos: "windows", sep: '\\', list: ';', caseFold: true, exeSuffix: ".exe"},
		{goos: "linux", sep: '/', list: ':', caseFold: false},
		{goos: "darwin", sep: '/', list: ':', caseFold: true},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			p, err := ForOS(tt.goos, "amd64")
			if err != nil {
				t.Fatal(err)
			}
			if p.Separator != tt.sep || p.ListSeparator != tt.list {
				t.Errorf("separators = %q/%q, want %q/%q", p.Separator, p.ListSeparator, tt.sep, tt.list)
			}
			if p.CaseInsensitive != tt.caseFold {
				t.Errorf("CaseInsensitive = %v", p.CaseInsensitive)
			}
			if p.ExeSuffix != tt.exeSuffix {
				t.Errorf("ExeSuffix = %q", p.ExeSuffix)
			}
		})
	}

	if _, err := ForOS("plan9", "amd64"); err == nil {
		t.Error("expected error for unsupported OS")
	}
}

func TestToNativeAndJoinList(t *testing.T) {
	win, _ := ForOS("windows", "amd64")
	if got := win.ToNative("src/lib/a.rb"); got != `src\lib\a.rb` {
		t.Errorf("ToNative = %q", got)
	}
	if got := win.JoinList([]string{"|/src/lib", "|/src/ext"}); got != "|/src/lib;|/src/ext" {
		t.Errorf("JoinList = %q", got)
	}

	linux, _ := ForOS("linux", "amd64")
	if got := linux.ToNative("src/lib/a.rb"); got != "src/lib/a.rb" {
		t.Errorf("ToNative = %q", got)
	}
}

func TestHasSharedLibraryExt(t *testing.T) {
	win, _ := ForOS("windows", "amd64")
	linux, _ := ForOS("linux", "amd64")

	tests := []struct {
		p    *Platform
		name string
		want bool
	}{
		{win, "zlib1.DLL", true},
		{win, "ruby.exe", false},
		{linux, "libssl.so", true},
		{linux, "libssl.so.3", true},
		{linux, "foo.rb", false},
	}
	for _, tt := range tests {
		if got := tt.p.HasSharedLibraryExt(tt.name); got != tt.want {
			t.Errorf("%s HasSharedLibraryExt(%q) = %v, want %v", tt.p.OS, tt.name, got, tt.want)
		}
	}
}
