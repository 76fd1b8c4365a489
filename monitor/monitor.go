// Package monitor serves a live view of a session over HTTP.
//
// Telemetry, plotted paths and operator messages are published as JSON both
// on server-sent event channels (/events/state, /events/path,
// /events/message) and on a websocket (/ws). Files under the data directory
// are served read-only at /data/.
package monitor

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"log"
	"net/http"
	"sync"
	"time"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mastercactapus/xytable/coord"
	"github.com/mastercactapus/xytable/machine"
)

var errClosed = errors.New("monitor closed")

const (
	eventState   = "state"
	eventPath    = "path"
	eventMessage = "message"
)

// StateEvent is published for every telemetry sample.
type StateEvent struct {
	X, Y, Z  float64
	Latency  float64
	Stopped  bool
	Received time.Time
}

// PathEvent is published when a path is plotted.
type PathEvent struct {
	Name   string
	Points [][3]float64
}

// Event is the websocket envelope; SSE channels carry the bare payload.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	ws   *websocket.Conn
	send chan []byte
}

// Server is an http.Handler publishing session activity.
type Server struct {
	http.Handler

	log      zerolog.Logger
	sse      *sse.Server
	upgrader websocket.Upgrader

	events chan Event
	done   chan struct{}
	once   sync.Once

	mx      sync.Mutex
	clients map[*client]struct{}

	// last payload per event type, and the envelope replayed to new
	// websocket clients
	last   map[string][]byte
	replay map[string][]byte
}

// NewServer creates a Server serving files from dir. Failures are logged
// to l.
func NewServer(dir string, l zerolog.Logger) *Server {
	r := mux.NewRouter()
	s := &Server{
		Handler: r,
		log:     l,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(ioutil.Discard, "", 0),
		}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
		clients: make(map[*client]struct{}),
		last:    make(map[string][]byte),
		replay:  make(map[string][]byte),
	}

	fs := http.StripPrefix("/data", http.FileServer(http.Dir(dir)))
	r.PathPrefix("/data/").Methods("GET", "HEAD").Handler(fs)
	r.PathPrefix("/data/").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
	r.Handle("/events/{name}", s.sse).Methods("GET")
	r.HandleFunc("/ws", s.serveWS).Methods("GET")
	r.HandleFunc("/api/{name}", s.serveLast).Methods("GET")

	go s.loop()

	return s
}

// publish queues ev, dropping it if the queue is full.
func (s *Server) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func stateEvent(st machine.State) Event {
	return Event{Type: eventState, Data: StateEvent{
		X:        st.Pos.X,
		Y:        st.Pos.Y,
		Z:        st.Pos.Z,
		Latency:  st.Latency,
		Stopped:  st.Stopped,
		Received: st.Received,
	}}
}

func (s *Server) Show(st machine.State)   { s.publish(stateEvent(st)) }
func (s *Server) Update(st machine.State) { s.publish(stateEvent(st)) }
func (s *Server) Message(msg string)      { s.publish(Event{Type: eventMessage, Data: msg}) }
func (s *Server) Prompt()                 {}

// Plot publishes a path. Unlike telemetry, paths are never dropped.
func (s *Server) Plot(name string, pts []coord.Point) error {
	p := PathEvent{Name: name, Points: make([][3]float64, len(pts))}
	for i, pt := range pts {
		p.Points[i] = [3]float64{pt.X, pt.Y, pt.Z}
	}
	select {
	case <-s.done:
		return errClosed
	default:
	}
	select {
	case s.events <- Event{Type: eventPath, Data: p}:
		return nil
	case <-s.done:
		return errClosed
	}
}

func (s *Server) loop() {
	for {
		var ev Event
		select {
		case <-s.done:
			return
		case ev = <-s.events:
		}

		payload, err := json.Marshal(ev.Data)
		if err != nil {
			s.log.Error().Err(err).Str("event", ev.Type).Msg("marshal event")
			continue
		}
		s.sse.SendMessage("/events/"+ev.Type, sse.SimpleMessage(string(payload)))

		data, err := json.Marshal(ev)
		if err != nil {
			s.log.Error().Err(err).Str("event", ev.Type).Msg("marshal event")
			continue
		}
		s.broadcast(ev.Type, payload, data)
	}
}

func (s *Server) broadcast(typ string, payload, data []byte) {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.last[typ] = payload
	if typ != eventMessage {
		s.replay[typ] = data
	}
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.log.Warn().Str("remote", c.ws.RemoteAddr().String()).Msg("websocket client too slow, dropping")
			s.drop(c)
		}
	}
}

// drop must be called with mx held.
func (s *Server) drop(c *client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

func (s *Server) serveLast(w http.ResponseWriter, req *http.Request) {
	s.mx.Lock()
	data, ok := s.last[mux.Vars(req)["name"]]
	s.mx.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) serveWS(w http.ResponseWriter, req *http.Request) {
	ws, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade")
		return
	}
	c := &client{ws: ws, send: make(chan []byte, 100)}

	s.mx.Lock()
	select {
	case <-s.done:
		s.mx.Unlock()
		ws.Close()
		return
	default:
	}
	s.clients[c] = struct{}{}
	for _, typ := range []string{eventState, eventPath} {
		if data, ok := s.replay[typ]; ok {
			c.send <- data
		}
	}
	s.mx.Unlock()

	go s.writeLoop(c)

	// clients never send anything; read only to notice the close
	for {
		_, _, err := ws.ReadMessage()
		if err != nil {
			break
		}
	}

	s.mx.Lock()
	s.drop(c)
	s.mx.Unlock()
}

func (s *Server) writeLoop(c *client) {
	defer c.ws.Close()
	for data := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		err := c.ws.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			s.log.Error().Err(err).Str("remote", c.ws.RemoteAddr().String()).Msg("websocket write")
			return
		}
	}
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close stops publishing and disconnects all websocket clients.
func (s *Server) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.mx.Lock()
		for c := range s.clients {
			s.drop(c)
		}
		s.mx.Unlock()
		s.sse.Shutdown()
	})
	return nil
}
