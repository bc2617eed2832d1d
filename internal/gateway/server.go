// Package gateway exposes the gallery to the browser: a JSON HTTP API
// over the token store, the mutation operations and the session, plus
// a websocket channel that pushes refresh events.
package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/identity"
	"icrc-nft-gallery/internal/ledger"
	"icrc-nft-gallery/internal/metadata"
	"icrc-nft-gallery/internal/nft"
	"icrc-nft-gallery/internal/observability"
	"icrc-nft-gallery/internal/store"
)

// Options configures a Server.
type Options struct {
	Store   *store.TokenStore
	Service *nft.Service
	Session *identity.Session
	Logger  *log.Logger
}

// Server is the HTTP gateway.
type Server struct {
	store   *store.TokenStore
	svc     *nft.Service
	session *identity.Session
	hub     *Hub
	logger  *log.Logger
	start   time.Time
}

// New creates a Server and wires store refreshes to the websocket hub.
func New(opts Options) *Server {
	s := &Server{
		store:   opts.Store,
		svc:     opts.Service,
		session: opts.Session,
		hub:     NewHub(opts.Logger),
		logger:  opts.Logger,
		start:   time.Now(),
	}
	s.store.OnRefresh(func() {
		s.hub.Broadcast(refreshEvent{Type: "store_refreshed", At: time.Now()})
	})
	return s
}

// Handler returns the gateway's route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("GET /ws", s.hub)

	mux.HandleFunc("GET /api/collection", s.handleCollection)
	mux.HandleFunc("GET /api/tokens", s.handleTokens)
	mux.HandleFunc("POST /api/tokens/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/tokens/{id}", s.handleToken)
	mux.HandleFunc("GET /api/tokens/{id}/approvals", s.handleApprovals)
	mux.HandleFunc("POST /api/tokens/{id}/transfer", s.handleTransfer)
	mux.HandleFunc("POST /api/tokens/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /api/tokens/{id}/revoke", s.handleRevoke)
	mux.HandleFunc("POST /api/tokens/{id}/burn", s.handleBurn)
	mux.HandleFunc("GET /api/mine", s.handleMine)
	mux.HandleFunc("POST /api/mint", s.handleMint)

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/session/qr", s.handleSessionQR)

	return mux
}

type refreshEvent struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	SignedIn   bool   `json:"signed_in"`
	Principal  string `json:"principal,omitempty"`
	IsAdmin    bool   `json:"is_admin"`
	AllTokens  int    `json:"all_tokens"`
	MineTokens int    `json:"my_tokens"`
	WSClients  int    `json:"ws_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.start).String(),
		IsAdmin:    s.session.IsAdministrator(),
		AllTokens:  len(s.store.All()),
		MineTokens: len(s.store.Mine()),
		WSClients:  s.hub.Count(),
	}
	if id, ok := s.session.Current(); ok {
		resp.SignedIn = true
		resp.Principal = id.Principal().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	meta := s.store.Collection()
	if meta == nil {
		fetched, err := s.store.FetchCollection(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		meta = fetched
	}
	writeJSON(w, http.StatusOK, meta)
}

// tokenResponse is one token with its derived display fields.
type tokenResponse struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Owner       string         `json:"owner,omitempty"`
	OwnerShort  string         `json:"owner_short,omitempty"`
	IsOwner     bool           `json:"is_owner"`
	Attributes  *candid.Object `json:"attributes"`
}

func (s *Server) tokenResponse(rec domain.TokenRecord) tokenResponse {
	resp := tokenResponse{
		ID:          rec.ID,
		Name:        metadata.DisplayName(rec.Metadata, rec.ID),
		Description: metadata.DisplayDescription(rec.Metadata),
		Image:       metadata.PrimaryImageURL(rec.Metadata),
		IsOwner:     s.svc.IsOwner(rec.ID),
		Attributes:  rec.Metadata,
	}
	if !rec.Owner.IsZero() {
		resp.Owner = rec.Owner.String()
		resp.OwnerShort = metadata.ShortPrincipal(rec.Owner.Owner.String(), 5)
	}
	return resp
}

func (s *Server) tokenResponses(records []domain.TokenRecord) []tokenResponse {
	out := make([]tokenResponse, len(records))
	for i, rec := range records {
		out[i] = s.tokenResponse(rec)
	}
	return out
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tokenResponses(s.store.All()))
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session.Account(); !ok {
		s.writeError(w, identity.ErrNoIdentity)
		return
	}
	writeJSON(w, http.StatusOK, s.tokenResponses(s.store.Mine()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.FetchAll(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	if acct, ok := s.session.Account(); ok {
		if _, err := s.store.FetchMine(r.Context(), acct); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.tokenResponses(s.store.All()))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := s.tokenID(w, r)
	if !ok {
		return
	}
	view := s.svc.NewTokenView(tokenID)
	if err := view.Load(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}

	resp := struct {
		tokenResponse
		Phase     nft.ViewPhase                           `json:"phase"`
		Approvals []approvalResponse                      `json:"approvals,omitempty"`
		IsAdmin   bool                                    `json:"is_admin"`
		States    map[nft.Operation]domain.OperationState `json:"operation_states"`
	}{
		tokenResponse: s.tokenResponse(view.Record()),
		Phase:         view.Phase(),
		Approvals:     approvalResponses(view.Approvals()),
		IsAdmin:       s.svc.IsAdministrator(),
		States:        s.svc.States(),
	}
	writeJSON(w, http.StatusOK, resp)
}

type approvalResponse struct {
	TokenID   uint64 `json:"token_id"`
	Spender   string `json:"spender"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func approvalResponses(records []domain.ApprovalRecord) []approvalResponse {
	out := make([]approvalResponse, len(records))
	for i, rec := range records {
		out[i] = approvalResponse{
			TokenID: rec.TokenID,
			Spender: rec.Spender.String(),
		}
		if rec.ExpiresAt != nil {
			out[i].ExpiresAt = metadata.FormatTimestamp(*rec.ExpiresAt)
		}
	}
	return out
}

func (s *Server) handleApprovals(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := s.tokenID(w, r)
	if !ok {
		return
	}
	approvals, err := s.svc.ListApprovals(r.Context(), tokenID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approvalResponses(approvals))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := s.tokenID(w, r)
	if !ok {
		return
	}
	var req struct {
		Recipient string `json:"recipient"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.Transfer(r.Context(), tokenID, req.Recipient); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State(nft.OpTransfer))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := s.tokenID(w, r)
	if !ok {
		return
	}
	var req struct {
		Spender   string  `json:"spender"`
		ExpiresAt *uint64 `json:"expires_at,omitempty"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.Approve(r.Context(), tokenID, req.Spender, req.ExpiresAt); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State(nft.OpApprove))
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := s.tokenID(w, r)
	if !ok {
		return
	}
	var req struct {
		Spender *string `json:"spender,omitempty"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.Revoke(r.Context(), tokenID, req.Spender); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State(nft.OpRevoke))
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := s.tokenID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Burn(r.Context(), tokenID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State(nft.OpBurn))
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipient   string `json:"recipient,omitempty"`
		Name        string `json:"name"`
		Description string `json:"description"`
		ImageURL    string `json:"image_url"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}
	tokenID, err := s.svc.Mint(r.Context(), req.Recipient, req.Name, req.Description, req.ImageURL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_id": tokenID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	id, err := s.session.Login()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"principal": id.Principal().String(),
		"is_admin":  s.session.IsAdministrator(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.session.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"signed_in": false}
	if id, ok := s.session.Current(); ok {
		resp["signed_in"] = true
		resp["principal"] = id.Principal().String()
		resp["principal_short"] = metadata.ShortPrincipal(id.Principal().String(), 5)
		resp["is_admin"] = s.session.IsAdministrator()
	}
	writeJSON(w, http.StatusOK, resp)
}

// tokenID parses the {id} path segment.
func (s *Server) tokenID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid token identifier"})
		return 0, false
	}
	return id, true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeError maps an error to a status code. Ledger err variants keep
// their kind so the UI can show the ledger's literal error.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var callErr *ledger.CallError
	var burnErr *nft.BurnError
	switch {
	case errors.Is(err, nft.ErrInvalidIdentifier),
		errors.Is(err, nft.ErrMissingField),
		errors.Is(err, nft.ErrExpiryNotFuture):
		status = http.StatusBadRequest
	case errors.Is(err, identity.ErrNoIdentity):
		status = http.StatusUnauthorized
	case errors.Is(err, nft.ErrNotOwner), errors.Is(err, nft.ErrNotAdmin):
		status = http.StatusForbidden
	case errors.Is(err, nft.ErrTokenNotFound), errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &callErr):
		status = http.StatusConflict
		resp.Kind = callErr.Kind
	case errors.As(err, &burnErr):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
