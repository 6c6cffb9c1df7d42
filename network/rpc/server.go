// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc exposes the node's JSON-RPC surface.
package rpc

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gitlab.com/dyadchain/dyadd/types/chainjson"
)

// rpcAuthTimeoutSeconds is the number of seconds a connection to the RPC
// server is allowed to stay open without authenticating before it is closed.
const rpcAuthTimeoutSeconds = 10

// Config holds the RPC server settings.
type Config struct {
	// ListenAddr is the interface/port to listen for RPC connections on.
	ListenAddr string `yaml:"listen_addr"`

	// User and Password protect the endpoint with HTTP basic auth.  Both
	// empty disables authentication.
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// MaxClients is the maximum number of concurrent RPC clients.
	MaxClients int32 `yaml:"max_clients"`
}

// Default returns the config the node runs with when the operator sets
// nothing.
func (Config) Default() Config {
	return Config{
		ListenAddr: "127.0.0.1:18332",
		MaxClients: 10,
	}
}

// CommandHandler is an RPC method implementation.  Params are the raw
// positional JSON parameters of the request.
type CommandHandler func(params []json.RawMessage) (interface{}, error)

// Server is a JSON-RPC over HTTP server with a flat method table.
type Server struct {
	cfg        Config
	handlers   map[string]CommandHandler
	numClients int32
	log        zerolog.Logger
}

// NewServer returns an RPC server serving the passed method table.
func NewServer(cfg Config, handlers map[string]CommandHandler, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		handlers: handlers,
		log:      log,
	}
}

// rpcRequest is the expected shape of a JSON-RPC request body.
type rpcRequest struct {
	ID     interface{}       `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// rpcResponse is the shape of a JSON-RPC response body.
type rpcResponse struct {
	Result interface{}         `json:"result"`
	Error  *chainjson.RPCError `json:"error"`
	ID     interface{}         `json:"id"`
}

// Run starts the RPC listener and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	httpServer := &http.Server{
		Handler:     mux,
		ReadTimeout: time.Second * rpcAuthTimeoutSeconds,
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	s.log.Info().Msgf("RPC server listening on %s", listener.Addr())
	err = httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// checkAuth verifies the HTTP basic auth of the request, with a constant
// time comparison so the check does not leak credential prefixes.
func (s *Server) checkAuth(r *http.Request) bool {
	if s.cfg.User == "" && s.cfg.Password == "" {
		return true
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOk := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.User))
	passOk := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.Password))
	return userOk&passOk == 1
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.checkAuth(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="dyadd RPC"`)
		http.Error(w, "401 Unauthorized", http.StatusUnauthorized)
		return
	}

	// Limit the number of concurrent clients the same way the peer code
	// limits connections: beyond the cap requests are shed, not queued.
	if atomic.AddInt32(&s.numClients, 1) > s.cfg.MaxClients {
		atomic.AddInt32(&s.numClients, -1)
		s.log.Info().Msgf("Max RPC clients exceeded [%d], disconnecting client %s",
			s.cfg.MaxClients, r.RemoteAddr)
		http.Error(w, "503 Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.numClients, -1)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeResponse(w, nil, nil, chainjson.NewRPCError(chainjson.ErrRPCInvalidRequest,
			"failed to read request body"))
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeResponse(w, nil, nil, chainjson.NewRPCError(chainjson.ErrRPCParse,
			"failed to parse request: "+err.Error()))
		return
	}

	result, rpcErr := s.dispatch(&req)
	s.writeResponse(w, req.ID, result, rpcErr)
}

// dispatch runs the handler for the request's method and normalizes its
// error into an *chainjson.RPCError.
func (s *Server) dispatch(req *rpcRequest) (interface{}, *chainjson.RPCError) {
	handler, ok := s.handlers[req.Method]
	if !ok {
		return nil, chainjson.NewRPCError(chainjson.ErrRPCMethodNotFound,
			"Method not found: "+req.Method)
	}

	s.log.Debug().Msgf("Handling command %s", req.Method)
	result, err := handler(req.Params)
	if err != nil {
		if rpcErr, ok := err.(*chainjson.RPCError); ok {
			return nil, rpcErr
		}
		s.log.Error().Err(err).Msgf("Internal error handling %s", req.Method)
		return nil, chainjson.NewRPCError(chainjson.ErrRPCInternal, err.Error())
	}
	return result, nil
}

func (s *Server) writeResponse(w http.ResponseWriter, id, result interface{}, rpcErr *chainjson.RPCError) {
	w.Header().Set("Content-Type", "application/json")
	resp := rpcResponse{Result: result, Error: rpcErr, ID: id}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode RPC response")
	}
}
