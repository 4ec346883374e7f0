// Package rpc implements the JSON-RPC 2.0 API through which local
// applications drive a long-running vault: unlock once, sign many times
// until auto-lock or an explicit lock ends the session.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Klingon-tech/klingvault/config"
	klog "github.com/Klingon-tech/klingvault/internal/log"
	"github.com/Klingon-tech/klingvault/internal/vault"
	"github.com/rs/zerolog"
)

// maxBodySize caps a request body at 1 MB.
const maxBodySize = 1 << 20

type handlerFunc func(*Request) (interface{}, *Error)

// Server serves the vault API over HTTP on a single endpoint.
type Server struct {
	addr     string
	keystore *vault.Keystore
	methods  map[string]handlerFunc
	server   *http.Server
	logger   zerolog.Logger
	ln       net.Listener
}

// New builds a server for ks listening on addr. An optional RPCConfig
// supplies the client allowlist and CORS origins; without one every
// caller is accepted and no CORS headers are sent.
func New(addr string, ks *vault.Keystore, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{addr: addr, keystore: ks, logger: klog.RPC}
	s.methods = map[string]handlerFunc{
		"vault_status":         s.handleVaultStatus,
		"vault_create":         s.handleVaultCreate,
		"vault_unlock":         s.handleVaultUnlock,
		"vault_lock":           s.handleVaultLock,
		"vault_touch":          s.handleVaultTouch,
		"vault_changePassword": s.handleVaultChangePassword,
		"vault_getSettings":    s.handleVaultGetSettings,
		"vault_updateSettings": s.handleVaultUpdateSettings,
		"account_list":         s.handleAccountList,
		"account_create":       s.handleAccountCreate,
		"account_rename":       s.handleAccountRename,
		"account_delete":       s.handleAccountDelete,
		"msg_sign":             s.handleMsgSign,
		"msg_verify":           s.handleMsgVerify,
	}

	var access accessPolicy
	if len(rpcCfg) > 0 {
		access = newAccessPolicy(rpcCfg[0])
	}
	s.server = &http.Server{
		Handler:      access.wrap(http.HandlerFunc(s.serveRPC)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // argon2id unlocks can be slow
	}
	return s
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("RPC server listening")
	return nil
}

// Addr returns the bound address once started, which matters for ":0".
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Stop waits up to five seconds for in-flight calls to finish.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	switch {
	case err != nil:
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	case len(body) > maxBodySize:
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, `jsonrpc must be "2.0"`)
		return
	}

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	resp.Result, resp.Error = s.dispatch(&req)
	if resp.Error != nil {
		s.logger.Debug().Str("method", req.Method).Int("code", resp.Error.Code).Msg("RPC call failed")
	}
	writeJSON(w, resp)
}

func (s *Server) dispatch(req *Request) (interface{}, *Error) {
	h, ok := s.methods[req.Method]
	if !ok {
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
	return h(req)
}

func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{JSONRPC: "2.0", Error: &Error{Code: code, Message: message}, ID: id})
}

// parseParams decodes req.Params into target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
