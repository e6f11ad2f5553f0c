package server

import (
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 320

// handleQR renders a PNG QR code linking to the game's section of the
// site. Without a configured site URL the request host is used.
func handleQR(siteURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(shareURL(r, siteURL, boardFrom(r).Slug), qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not render QR code")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(png)
	}
}

// shareURL is the site URL with the game as its fragment, SITE_URL#<game>.
func shareURL(r *http.Request, siteURL, slug string) string {
	base := siteURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host + "/"
	}
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return base + "#" + slug
}
