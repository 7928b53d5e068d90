package filter

import (
	"net/url"
	"reflect"
	"testing"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		blockMedia bool
		url        string
		wantRule   string
		wantBlock  bool
	}{
		{"media enabled jpg", true, "https://example.com/img/photo.jpg", "media", true},
		{"media disabled jpg", false, "https://example.com/img/photo.jpg", "", false},
		{"media uppercase ext", true, "https://example.com/a/CLIP.MP4", "media", true},
		{"media with query string", true, "https://example.com/a/b.webm?x=1", "media", true},
		{"media ext only in query", true, "https://example.com/page?file=a.png", "", false},
		{"media ext in directory", true, "https://example.com/x.png/index.html", "", false},
		{"html page", true, "https://example.com/index.html", "", false},
		{"ad domain media off", false, "https://pagead2.googlesyndication.com/x", "ad-domain", true},
		{"ad domain media on", true, "https://pagead2.googlesyndication.com/x", "ad-domain", true},
		{"ad domain substring", false, "https://static.ads-twitter.com/uwt.js", "ad-domain", true},
		{"ad domain mixed case", false, "https://STATS.DoubleClick.NET/pixel", "ad-domain", true},
		{"ad domain with media ext", true, "https://tpc.googlesyndication.com/img.gif", "media", true},
		{"ordinary host", false, "https://www.example.org/app.js", "", false},
		{"unparsable", true, "http://[::1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.blockMedia)
			rule, blocked := f.Decide(tt.url)
			if blocked != tt.wantBlock || rule != tt.wantRule {
				t.Errorf("Decide(%q) = (%q, %v), want (%q, %v)",
					tt.url, rule, blocked, tt.wantRule, tt.wantBlock)
			}
		})
	}
}

func TestNew_RuleOrder(t *testing.T) {
	if got, want := New(true).Rules(), []string{"media", "ad-domain"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Rules() = %v, want %v", got, want)
	}
	if got, want := New(false).Rules(), []string{"ad-domain"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Rules() = %v, want %v", got, want)
	}
}

type hostRule string

func (h hostRule) Name() string { return "host:" + string(h) }
func (h hostRule) Match(u *url.URL) bool { return u.Hostname() == string(h) }

func TestNewWithRules_FirstMatchWins(t *testing.T) {
	f := NewWithRules(hostRule("a.test"), AdDomainRule{}, hostRule("a.test"))
	rule, blocked := f.Decide("https://a.test/")
	if !blocked || rule != "host:a.test" {
		t.Errorf("Decide = (%q, %v), want first rule to match", rule, blocked)
	}
}

func TestDecide_ZeroValueAllows(t *testing.T) {
	var f *Filter
	if _, blocked := f.Decide("https://doubleclick.net/"); blocked {
		t.Error("nil filter should allow everything")
	}
	if _, blocked := (&Filter{}).Decide("https://doubleclick.net/"); blocked {
		t.Error("empty filter should allow everything")
	}
}
