package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"agentforge/internal/build"
	"agentforge/internal/roster"

	"github.com/gorilla/websocket"
)

type buildRequest struct {
	AgentsData json.RawMessage `json:"agents_data"`
	// Sync defaults to true when a remote is configured.
	Sync *bool `json:"sync,omitempty"`
}

func (in buildRequest) roster() (roster.Roster, error) {
	if len(in.AgentsData) == 0 || string(in.AgentsData) == "null" {
		return roster.Roster{}, errors.New("No agents data provided")
	}
	var r roster.Roster
	if err := json.Unmarshal(in.AgentsData, &r); err != nil {
		return roster.Roster{}, errors.New("agents_data is not a roster: " + err.Error())
	}
	if len(r.Agents) == 0 {
		return roster.Roster{}, errors.New("agents_data has no agents")
	}
	return r, nil
}

func (h *Handler) buildOptions(in buildRequest) build.Options {
	sync := h.Builder.Remote != nil
	if in.Sync != nil {
		sync = *in.Sync
	}
	return build.Options{RemoteSync: sync}
}

// HandleBuild streams build events as NDJSON, one object per line.
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	var in buildRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	ros, err := in.roster()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	h.logMentor("Build started for '" + ros.Slug() + "'")
	if err := h.Builder.Stream(r.Context(), ros, h.buildOptions(in), build.NewNDJSONSink(w)); err != nil {
		h.Log.Printf("build: client gone: %v", err)
	}
}

const (
	buildWSWriteWait = 10 * time.Second
	buildWSReadWait  = 60 * time.Second
)

var buildWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleBuildWS runs a build over a websocket. The client sends one build
// request as its first message and then receives one JSON message per
// event. Closing the socket aborts the build before the next model call.
func (h *Handler) HandleBuildWS(w http.ResponseWriter, r *http.Request) {
	conn, err := buildWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(buildWSReadWait)); err != nil {
		return
	}
	var in buildRequest
	if err := conn.ReadJSON(&in); err != nil {
		writeWSClose(conn, websocket.CloseUnsupportedData, "invalid build request")
		return
	}
	ros, err := in.roster()
	if err != nil {
		writeWSClose(conn, websocket.CloseUnsupportedData, err.Error())
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// reader: any inbound frame error means the client left
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	sink := build.SinkFunc(func(ev build.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(buildWSWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(ev)
	})
	h.logMentor("Build started for '" + ros.Slug() + "'")
	if err := h.Builder.Stream(ctx, ros, h.buildOptions(in), sink); err != nil {
		h.Log.Printf("build ws: %v", err)
		return
	}
	writeWSClose(conn, websocket.CloseNormalClosure, "build finished")
}

func writeWSClose(conn *websocket.Conn, code int, text string) {
	if len(text) > 120 {
		text = strings.TrimSpace(text[:120])
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(buildWSWriteWait))
}
