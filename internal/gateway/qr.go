package gateway

import (
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"icrc-nft-gallery/internal/identity"
)

// handleSessionQR renders the signed-in principal as a QR code so the
// account can be scanned into another wallet.
func (s *Server) handleSessionQR(w http.ResponseWriter, r *http.Request) {
	id, ok := s.session.Current()
	if !ok {
		s.writeError(w, identity.ErrNoIdentity)
		return
	}

	png, err := qrcode.Encode(id.Principal().String(), qrcode.Medium, 256)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
