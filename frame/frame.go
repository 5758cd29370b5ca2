// Package frame renders mirrored device screenshots inline in the terminal.
// It detects the best available protocol (Kitty, iTerm2, Sixel) and falls
// back to a styled text placeholder when none is supported.
package frame

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/droidpilot/droid-tui/style"
)

// dataURIPrefix is what the backend puts in front of every screenshot.
const dataURIPrefix = "data:image/png;base64,"

// Protocol identifies the terminal image rendering protocol.
type Protocol int

const (
	ProtocolNone   Protocol = iota // no image support; use placeholder
	ProtocolKitty                  // Kitty graphics protocol (APC escape)
	ProtocolITerm2                 // iTerm2 inline images (OSC 1337)
	ProtocolSixel                  // DEC Sixel graphics
)

// String returns a human-readable name for the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolKitty:
		return "Kitty"
	case ProtocolITerm2:
		return "iTerm2"
	case ProtocolSixel:
		return "Sixel"
	default:
		return "None"
	}
}

// DetectProtocol checks environment variables to determine which image
// rendering protocol the running terminal supports.
//
// Priority: Kitty (WezTerm/Ghostty) > iTerm2 > Sixel > None.
func DetectProtocol() Protocol {
	switch os.Getenv("TERM_PROGRAM") {
	case "WezTerm", "ghostty":
		return ProtocolKitty
	case "iTerm.app", "iTerm2.app":
		return ProtocolITerm2
	}

	term := os.Getenv("TERM")
	if strings.Contains(term, "sixel") {
		return ProtocolSixel
	}

	// Some terminals advertise Kitty support via TERM alone.
	if strings.Contains(term, "kitty") {
		return ProtocolKitty
	}

	return ProtocolNone
}

// Renderer converts screenshot data URIs into terminal output for one
// detected protocol.
type Renderer struct {
	proto Protocol
}

// NewRenderer detects the terminal protocol once and returns a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{proto: DetectProtocol()}
}

// Protocol returns the detected protocol.
func (r *Renderer) Protocol() Protocol { return r.proto }

// Supported reports whether real inline images can be drawn.
func (r *Renderer) Supported() bool {
	return r.proto == ProtocolKitty || r.proto == ProtocolITerm2
}

// Render converts a backend screenshot data URI into the escape sequence for
// inline display, constrained to maxWidth terminal cells. A URI that cannot
// be decoded, or a terminal without image support, yields a placeholder.
func (r *Renderer) Render(imageRef string, maxWidth int) string {
	b64, ok := strings.CutPrefix(imageRef, dataURIPrefix)
	if !ok {
		return placeholder(r.proto, maxWidth)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return placeholder(r.proto, maxWidth)
	}

	switch r.proto {
	case ProtocolKitty:
		return renderKitty(data, maxWidth)
	case ProtocolITerm2:
		return renderITerm2(data, maxWidth)
	default:
		// Sixel encoding needs pixel-level re-encoding of the PNG, which is
		// not worth the cost for a 2-second refresh cadence. Placeholder.
		return placeholder(r.proto, maxWidth)
	}
}

// placeholder is the text stand-in shown when inline images are unavailable.
func placeholder(proto Protocol, width int) string {
	label := "[device screen]"
	if proto == ProtocolNone {
		label = "[device screen — terminal has no image support]"
	}
	if width > 0 && len(label) > width {
		label = label[:width]
	}
	return style.Faint.Render(label)
}

// renderKitty emits a Kitty Graphics Protocol APC sequence for the frame.
// a=T means transmit-and-display, f=100 means PNG, m=0 single final chunk.
func renderKitty(data []byte, maxWidth int) string {
	b64 := base64.StdEncoding.EncodeToString(data)
	return fmt.Sprintf("\033_Ga=T,f=100,c=%d,m=0;%s\033\\", maxWidth, b64)
}

// renderITerm2 emits an iTerm2 OSC 1337 inline-image escape sequence.
func renderITerm2(data []byte, maxWidth int) string {
	b64Data := base64.StdEncoding.EncodeToString(data)
	b64Name := base64.StdEncoding.EncodeToString([]byte("screen.png"))
	return fmt.Sprintf(
		"\033]1337;File=name=%s;size=%d;inline=1;width=%d:%s\007",
		b64Name, len(data), maxWidth, b64Data,
	)
}
