package tracking

import (
	"fmt"
	"regexp"
	"strings"
)

var hrefRegex = regexp.MustCompile(`(?i)href="(https?://[^"]+)"`)

// InjectTracking rewrites links in html through the click redirect and
// appends the open pixel. logID ties every hit back to the delivery log row.
func (c *Codec) InjectTracking(html, baseURL, logID string) string {
	out := hrefRegex.ReplaceAllStringFunc(html, func(match string) string {
		m := hrefRegex.FindStringSubmatch(match)
		if len(m) != 2 {
			return match
		}
		return fmt.Sprintf(`href="%s"`, c.ClickURL(baseURL, logID, m[1]))
	})

	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none;">`, c.OpenURL(baseURL, logID))

	// Prefer inserting before </body> so the pixel loads last.
	if idx := strings.LastIndex(strings.ToLower(out), "</body>"); idx >= 0 {
		return out[:idx] + pixel + out[idx:]
	}
	return out + pixel
}
