// Package api exposes the channel and ledger operations over HTTP. It is a
// thin boundary: all protocol logic lives in pkg/channel and pkg/ledger.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/taurusgroup/pedersen-channel/pkg/bench"
	"github.com/taurusgroup/pedersen-channel/pkg/channel"
	"github.com/taurusgroup/pedersen-channel/pkg/ledger"
	"github.com/taurusgroup/pedersen-channel/pkg/pedersen"
	zkopening "github.com/taurusgroup/pedersen-channel/pkg/zk/opening"
)

// Manager owns the channel registry and the ledger. Operations against a
// given channel are serialized behind its lock; payments, signing and closes
// read-then-write shared state and must not interleave.
type Manager struct {
	group *pedersen.Parameters

	mtx      sync.Mutex
	channels map[string]*channel.Channel
	activeID string
	ledger   *ledger.Ledger
}

// NewManager creates a manager with no channels. A nil group selects the
// default parameters.
func NewManager(group *pedersen.Parameters) *Manager {
	if group == nil {
		group = pedersen.DefaultParameters()
	}
	return &Manager{
		group:    group,
		channels: map[string]*channel.Channel{},
		ledger:   ledger.New(group),
	}
}

type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func (m *Manager) resolve(channelID string) (*channel.Channel, *httpError) {
	target := channelID
	if target == "" {
		target = m.activeID
	}
	if target == "" {
		return nil, &httpError{status: http.StatusNotFound, message: "no channel has been opened"}
	}
	ch, ok := m.channels[target]
	if !ok {
		return nil, &httpError{status: http.StatusNotFound, message: "channel " + target + " not found"}
	}
	return ch, nil
}

type OpenRequest struct {
	DepositAlice int64  `json:"deposit_alice"`
	DepositBob   int64  `json:"deposit_bob"`
	ChannelID    string `json:"channel_id,omitempty"`
}

type UpdateRequest struct {
	Payer     channel.ParticipantID `json:"payer"`
	Delta     int64                 `json:"delta"`
	ChannelID string                `json:"channel_id,omitempty"`
}

type CosignRequest struct {
	ChannelID   string                `json:"channel_id,omitempty"`
	Participant channel.ParticipantID `json:"participant,omitempty"`
}

type CloseRequest struct {
	ChannelID string `json:"channel_id,omitempty"`
}

type StateResponse struct {
	ChannelID   string                                       `json:"channel_id"`
	Sequence    uint64                                       `json:"sequence"`
	Commitments map[channel.ParticipantID]string             `json:"commitments"`
	Proofs      map[channel.ParticipantID]zkopening.HexProof `json:"proofs"`
	Signatures  map[channel.ParticipantID]string             `json:"signatures"`
	VerifyKeys  map[channel.ParticipantID]string             `json:"verify_keys"`
}

type HistoryResponse struct {
	ChannelID string             `json:"channel_id"`
	History   []channel.Snapshot `json:"history"`
}

func stateResponse(ch *channel.Channel) StateResponse {
	snapshot := ch.State().Snapshot()
	verifyKeys := make(map[channel.ParticipantID]string, 2)
	for pid, key := range ch.VerifyKeys() {
		verifyKeys[pid] = key.Hex()
	}
	return StateResponse{
		ChannelID:   ch.ID(),
		Sequence:    snapshot.Sequence,
		Commitments: snapshot.Commitments,
		Proofs:      snapshot.Proofs,
		Signatures:  snapshot.Signatures,
		VerifyKeys:  verifyKeys,
	}
}

// Open creates and registers a new channel and makes it active.
func (m *Manager) Open(req OpenRequest) (StateResponse, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	opts := []channel.Option{channel.WithParameters(m.group)}
	if req.ChannelID != "" {
		opts = append(opts, channel.WithChannelID(req.ChannelID))
	}
	ch, err := channel.Open(req.DepositAlice, req.DepositBob, opts...)
	if err != nil {
		return StateResponse{}, err
	}
	m.channels[ch.ID()] = ch
	m.activeID = ch.ID()
	m.ledger.Register(ch)
	return stateResponse(ch), nil
}

// Update applies a payment and pushes the new state to the ledger.
func (m *Manager) Update(req UpdateRequest) (StateResponse, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	ch, herr := m.resolve(req.ChannelID)
	if herr != nil {
		return StateResponse{}, herr
	}
	if _, err := ch.ApplyPayment(req.Payer, req.Delta); err != nil {
		return StateResponse{}, err
	}
	if err := m.ledger.UpdateState(ch); err != nil {
		return StateResponse{}, err
	}
	return stateResponse(ch), nil
}

// Cosign signs the current state as one participant, or as both when no
// participant is named.
func (m *Manager) Cosign(req CosignRequest) (StateResponse, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	ch, herr := m.resolve(req.ChannelID)
	if herr != nil {
		return StateResponse{}, herr
	}
	if req.Participant != "" {
		if _, err := ch.SignState(req.Participant); err != nil {
			return StateResponse{}, err
		}
	} else {
		for _, pid := range channel.Participants() {
			if _, err := ch.SignState(pid); err != nil {
				return StateResponse{}, err
			}
		}
	}
	return stateResponse(ch), nil
}

// Close submits the channel's closing payload to the ledger.
func (m *Manager) Close(req CloseRequest) (*ledger.Settlement, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	ch, herr := m.resolve(req.ChannelID)
	if herr != nil {
		return nil, herr
	}
	if !ch.IsFullySigned() {
		return nil, &httpError{status: http.StatusBadRequest, message: "channel must be co-signed before settlement"}
	}
	return m.ledger.CooperativeClose(ch.ClosingPayload())
}

// State returns the current state view.
func (m *Manager) State(channelID string) (StateResponse, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	ch, herr := m.resolve(channelID)
	if herr != nil {
		return StateResponse{}, herr
	}
	return stateResponse(ch), nil
}

// History returns all past state snapshots, oldest first.
func (m *Manager) History(channelID string) (HistoryResponse, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	ch, herr := m.resolve(channelID)
	if herr != nil {
		return HistoryResponse{}, herr
	}
	return HistoryResponse{ChannelID: ch.ID(), History: ch.HistorySnapshots()}, nil
}

// Bench runs the benchmark client against a fresh channel.
func (m *Manager) Bench(iterations int) (*bench.Result, error) {
	return bench.Run(iterations, m.group)
}

// NewHandler wires the manager's operations into an http.Handler.
func NewHandler(m *Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/channel/open", func(w http.ResponseWriter, r *http.Request) {
		var req OpenRequest
		if !decode(w, r, &req) {
			return
		}
		respond(w, func() (interface{}, error) { return m.Open(req) })
	})

	mux.HandleFunc("/channel/update", func(w http.ResponseWriter, r *http.Request) {
		var req UpdateRequest
		if !decode(w, r, &req) {
			return
		}
		respond(w, func() (interface{}, error) { return m.Update(req) })
	})

	mux.HandleFunc("/channel/cosign", func(w http.ResponseWriter, r *http.Request) {
		var req CosignRequest
		if !decode(w, r, &req) {
			return
		}
		respond(w, func() (interface{}, error) { return m.Cosign(req) })
	})

	mux.HandleFunc("/channel/close", func(w http.ResponseWriter, r *http.Request) {
		var req CloseRequest
		if !decode(w, r, &req) {
			return
		}
		respond(w, func() (interface{}, error) { return m.Close(req) })
	})

	mux.HandleFunc("/channel/state", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("channel_id")
		respond(w, func() (interface{}, error) { return m.State(id) })
	})

	mux.HandleFunc("/channel/history", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("channel_id")
		respond(w, func() (interface{}, error) { return m.History(id) })
	})

	mux.HandleFunc("/eval/bench", func(w http.ResponseWriter, r *http.Request) {
		iterations := 100
		if value := r.URL.Query().Get("n"); value != "" {
			parsed, err := strconv.Atoi(value)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be an integer"})
				return
			}
			iterations = parsed
		}
		respond(w, func() (interface{}, error) { return m.Bench(iterations) })
	})

	return mux
}

func decode(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func respond(w http.ResponseWriter, op func() (interface{}, error)) {
	result, err := op()
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	var herr *httpError
	if errors.As(err, &herr) {
		return herr.status
	}
	if errors.Is(err, ledger.ErrUnknownChannel) {
		return http.StatusNotFound
	}
	if errors.Is(err, channel.ErrInternal) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
