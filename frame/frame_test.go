package frame

import (
	"encoding/base64"
	"strings"
	"testing"
)

var pngStub = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func dataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngStub)
}

func TestRenderKittyEscape(t *testing.T) {
	r := &Renderer{proto: ProtocolKitty}
	out := r.Render(dataURI(), 40)
	if !strings.HasPrefix(out, "\033_Ga=T,f=100,c=40") {
		t.Fatalf("not a kitty APC sequence: %q", out)
	}
	if !strings.HasSuffix(out, "\033\\") {
		t.Fatalf("unterminated APC sequence: %q", out)
	}
}

func TestRenderITerm2Escape(t *testing.T) {
	r := &Renderer{proto: ProtocolITerm2}
	out := r.Render(dataURI(), 40)
	if !strings.HasPrefix(out, "\033]1337;File=") {
		t.Fatalf("not an OSC 1337 sequence: %q", out)
	}
	if !strings.Contains(out, "inline=1") || !strings.Contains(out, "width=40") {
		t.Fatalf("missing display params: %q", out)
	}
}

func TestRenderFallsBackOnBadInput(t *testing.T) {
	r := &Renderer{proto: ProtocolKitty}

	for _, bad := range []string{
		"",
		"not a data uri",
		"data:image/png;base64,%%%not-base64%%%",
	} {
		out := r.Render(bad, 40)
		if strings.Contains(out, "\033_G") {
			t.Fatalf("emitted image escape for invalid input %q", bad)
		}
	}
}

func TestPlaceholderWhenUnsupported(t *testing.T) {
	r := &Renderer{proto: ProtocolNone}
	out := r.Render(dataURI(), 120)
	if !strings.Contains(out, "device screen") {
		t.Fatalf("placeholder missing: %q", out)
	}
	if r.Supported() {
		t.Fatal("ProtocolNone must not report image support")
	}
}
