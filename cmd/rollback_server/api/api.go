package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"strconv"

	"github.com/byebyebruce/rollbackserver/logic"

	l4g "github.com/alecthomas/log4go"
)

// WebAPI http api
type WebAPI struct {
	m   *logic.RoomManager
	mux *http.ServeMux
}

// NewWebAPI 构造, addr 为空时不监听
func NewWebAPI(addr string, m *logic.RoomManager) *WebAPI {
	r := &WebAPI{
		m:   m,
		mux: http.NewServeMux(),
	}

	r.mux.HandleFunc("/create", r.createRoom)
	r.mux.HandleFunc("/close", r.closeRoom)
	r.mux.HandleFunc("/status", r.status)
	r.mux.Handle("/debug/pprof/", http.DefaultServeMux)

	if addr != "" {
		go func() {
			l4g.Info("[api] web api listen on %s", addr)
			if e := http.ListenAndServe(addr, r.mux); nil != e {
				l4g.Error("[api] listen %s: %v", addr, e)
			}
		}()
	}

	return r
}

// ServeHTTP 测试里直接用
func (h *WebAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func roomID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.URL.Query().Get("room"), 10, 64)
}

func (h *WebAPI) createRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		http.Error(w, "bad room id", http.StatusBadRequest)
		return
	}

	room, err := h.m.CreateRoom(id)
	if nil != err {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	fmt.Fprintf(w, "room.ID=[%d] room.Time=[%d]", room.ID(), room.TimeStamp())
}

func (h *WebAPI) closeRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomID(r)
	if err != nil {
		http.Error(w, "bad room id", http.StatusBadRequest)
		return
	}
	if !h.m.CloseRoom(id) {
		http.Error(w, "no room", http.StatusNotFound)
		return
	}
	fmt.Fprintf(w, "room.ID=[%d] closed", id)
}

func (h *WebAPI) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.m.Status()); err != nil {
		l4g.Error("[api] encode status: %v", err)
	}
}
