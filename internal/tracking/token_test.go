package tracking

import (
	"strings"
	"testing"
)

func TestCodec_OpenRoundTrip(t *testing.T) {
	codec := NewCodec("secret")

	url := codec.OpenURL("https://track.example.com", "log-123")
	if !strings.HasPrefix(url, "https://track.example.com/track/open/") {
		t.Fatalf("unexpected URL shape: %s", url)
	}

	parts := strings.Split(strings.TrimPrefix(url, "https://track.example.com/track/open/"), "/")
	if len(parts) != 2 {
		t.Fatalf("URL has %d token segments, want 2", len(parts))
	}

	logID, ok := codec.DecodeOpen(parts[0], parts[1])
	if !ok {
		t.Fatal("DecodeOpen() rejected a valid token")
	}
	if logID != "log-123" {
		t.Errorf("logID = %q, want log-123", logID)
	}
}

func TestCodec_ClickRoundTrip(t *testing.T) {
	codec := NewCodec("secret")
	target := "https://example.com/offer?utm=spring|launch"

	url := codec.ClickURL("https://track.example.com/", "log-456", target)
	parts := strings.Split(strings.TrimPrefix(url, "https://track.example.com/track/click/"), "/")
	if len(parts) != 2 {
		t.Fatalf("URL has %d token segments, want 2", len(parts))
	}

	logID, decoded, ok := codec.DecodeClick(parts[0], parts[1])
	if !ok {
		t.Fatal("DecodeClick() rejected a valid token")
	}
	if logID != "log-456" {
		t.Errorf("logID = %q, want log-456", logID)
	}
	// The target may itself contain the separator; only the first split
	// belongs to the log ID.
	if decoded != target {
		t.Errorf("target = %q, want %q", decoded, target)
	}
}

func TestCodec_RejectsForgedSignature(t *testing.T) {
	codec := NewCodec("secret")
	data, _ := codec.encode("log-123")

	if _, ok := codec.DecodeOpen(data, "deadbeef"); ok {
		t.Error("forged signature accepted")
	}
}

func TestCodec_RejectsForeignSecret(t *testing.T) {
	a := NewCodec("secret-a")
	b := NewCodec("secret-b")

	data, sig := a.encode("log-123")
	if _, ok := b.DecodeOpen(data, sig); ok {
		t.Error("token signed with a different secret accepted")
	}
}

func TestCodec_RejectsMalformedData(t *testing.T) {
	codec := NewCodec("secret")

	// Signature matches, but the payload is not valid base64.
	bad := "not-base64!!"
	if _, ok := codec.DecodeOpen(bad, codec.sign(bad)); ok {
		t.Error("malformed payload accepted")
	}
}

func TestInjectTracking(t *testing.T) {
	codec := NewCodec("secret")
	html := `<html><body><a href="https://example.com/a">A</a><a href="https://example.com/b">B</a></body></html>`

	out := codec.InjectTracking(html, "https://track.example.com", "log-1")

	if strings.Contains(out, `href="https://example.com/a"`) {
		t.Error("original link left unwrapped")
	}
	if got := strings.Count(out, "/track/click/"); got != 2 {
		t.Errorf("rewrote %d links, want 2", got)
	}
	if !strings.Contains(out, "/track/open/") {
		t.Error("open pixel missing")
	}
	if !strings.Contains(out, `</body>`) {
		t.Error("body closing tag lost")
	}
	pixelIdx := strings.Index(out, "/track/open/")
	bodyIdx := strings.Index(out, "</body>")
	if pixelIdx > bodyIdx {
		t.Error("pixel should be inserted before </body>")
	}
}

func TestInjectTracking_NoBodyTag(t *testing.T) {
	codec := NewCodec("secret")
	out := codec.InjectTracking("<p>plain fragment</p>", "https://track.example.com", "log-1")
	if !strings.Contains(out, "/track/open/") {
		t.Error("pixel missing for fragment without </body>")
	}
}

func TestInjectTracking_SkipsNonHTTPLinks(t *testing.T) {
	codec := NewCodec("secret")
	html := `<a href="mailto:hi@example.com">write us</a>`
	out := codec.InjectTracking(html, "https://track.example.com", "log-1")
	if !strings.Contains(out, `href="mailto:hi@example.com"`) {
		t.Error("mailto link should not be rewritten")
	}
}
