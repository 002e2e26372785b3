package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"Kasumi/server/internal/pkg/encryption/modes"
	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/pkg/helpers"
	"Kasumi/server/internal/protocol"
	"Kasumi/server/internal/services/auth"
	"Kasumi/server/internal/services/cipher"
)

type cipherFunc func(ctx context.Context, req cipher.Request) (*cipher.Response, error)

type credentials struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// handleRegister handles API client registration
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	clientID, err := s.authSvc.Register(req.Name, req.Secret)
	if errors.Is(err, auth.ErrClientExists) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	token, err := s.authSvc.CreateToken(clientID, req.Name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"client_id": clientID,
		"name":      req.Name,
		"token":     token,
	})
}

// handleLogin exchanges client credentials for a token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := s.authSvc.Login(req.Name, req.Secret)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	claims, err := s.authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"client_id": claims.ClientID,
		"name":      claims.ClientName,
		"token":     token,
	})
}

// handleListModes lists the supported chaining modes
func (s *Server) handleListModes(w http.ResponseWriter, r *http.Request) {
	type modeInfo struct {
		Name       string `json:"name"`
		RequiresIV bool   `json:"requires_iv"`
	}

	infos := lo.Map(modes.Names(), func(name string, _ int) modeInfo {
		mode, _ := modes.GetMode(name)
		return modeInfo{Name: mode.Name(), RequiresIV: mode.RequiresIV()}
	})
	writeJSON(w, map[string]interface{}{"modes": infos})
}

// handleGetField returns the field parameters for a degree
func (s *Server) handleGetField(w http.ResponseWriter, r *http.Request) {
	degree, err := strconv.ParseUint(mux.Vars(r)["degree"], 10, 8)
	if err != nil {
		http.Error(w, "Invalid degree", http.StatusBadRequest)
		return
	}

	active := s.cipherSvc.Field().Parameters()
	params := active
	if uint(degree) != active.Degree {
		if _, err := galois.Polynomials(uint(degree)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if s.fieldStore == nil {
			http.Error(w, "Field parameters not found", http.StatusNotFound)
			return
		}
		params, err = s.fieldStore.LoadParameters(r.Context(), uint(degree))
		if errors.Is(err, galois.ErrNotFound) {
			http.Error(w, "Field parameters not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, protocol.FieldParametersResponse{
		Degree:     params.Degree,
		Polynomial: params.Polynomial,
		Generator:  params.Generator,
	})
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	s.handleCipher(w, r, s.cipherSvc.Encrypt)
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	s.handleCipher(w, r, s.cipherSvc.Decrypt)
}

func (s *Server) handleCipher(w http.ResponseWriter, r *http.Request, op cipherFunc) {
	var req protocol.CipherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := helpers.ValidateCipherRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	claims := claimsFrom(r.Context())
	resp, err := op(r.Context(), cipher.Request{
		RequestID: req.ID,
		ClientID:  claims.ClientID,
		Mode:      req.Mode,
		KeyHex:    req.Key,
		IVHex:     req.IV,
		Text:      req.Text,
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, resp.ToProtocol(req.ID))
}

// handleSelfTest round-trips a text through every mode
func (s *Server) handleSelfTest(w http.ResponseWriter, r *http.Request) {
	var req protocol.CipherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	results, err := s.cipherSvc.SelfTest(r.Context(), req.Key, req.IV, req.Text)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, map[string]interface{}{
		"passed":  len(lo.Filter(results, func(res protocol.SelfTestResult, _ int) bool { return !res.OK })) == 0,
		"results": results,
	})
}

// handleListOperations returns the caller's recent operations
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	if s.operations == nil {
		http.Error(w, "Operation log disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ops, err := s.operations.ListOperations(r.Context(), claimsFrom(r.Context()).ClientID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ops == nil {
		ops = []protocol.Operation{}
	}
	writeJSON(w, map[string]interface{}{"operations": ops})
}
