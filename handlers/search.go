package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/service"
	"github.com/tourcraft/tourcraft/internal/search"
	"github.com/tourcraft/tourcraft/pkg/logger"
)

// SearchOptions tunes both search endpoints.
type SearchOptions struct {
	Debounce   time.Duration
	MaxResults int
	MinLength  int
	// AllowedOrigins limits websocket upgrades; empty or "*" allows any origin.
	AllowedOrigins []string
}

// SearchHandler serves one-shot searches over HTTP and debounced searches
// over a websocket.
type SearchHandler struct {
	accessors *service.Accessors
	opts      SearchOptions
	upgrader  websocket.Upgrader
}

func NewSearchHandler(as *service.Accessors, opts SearchOptions) *SearchHandler {
	h := &SearchHandler{accessors: as, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Register mounts GET /search/:collection and GET /ws/search/:collection.
func (h *SearchHandler) Register(rg gin.IRouter) {
	rg.GET("/search/:collection", h.search)
	rg.GET("/ws/search/:collection", h.stream)
}

func (h *SearchHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range h.opts.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (h *SearchHandler) searcher(c *gin.Context) (*service.Accessor, *search.Searcher, bool) {
	a, err := h.accessors.For(c.Param("collection"))
	if err != nil {
		apperr.Respond(c, err)
		return nil, nil, false
	}
	return a, search.NewSearcher(a.Schema(), a, h.opts.MaxResults, h.opts.MinLength), true
}

func (h *SearchHandler) search(c *gin.Context) {
	_, s, ok := h.searcher(c)
	if !ok {
		return
	}
	term := c.Query("q")
	recs, err := s.Search(c.Request.Context(), term)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"term": term, "results": recs})
}

// searchMessage is a client frame on the search websocket.
type searchMessage struct {
	Type string `json:"type"` // input, select, clear
	Term string `json:"term,omitempty"`
	ID   string `json:"id,omitempty"`
}

// searchFrame is a server frame on the search websocket.
type searchFrame struct {
	Type     string          `json:"type"` // results, selected, cleared, error
	Seq      uint64          `json:"seq,omitempty"`
	Term     string          `json:"term,omitempty"`
	Results  []entity.Record `json:"results,omitempty"`
	Selected entity.Record   `json:"selected,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// wsWriter serializes writes; gorilla connections allow one concurrent writer.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(f searchFrame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := w.conn.WriteJSON(f); err != nil {
		logger.Debugf("search websocket write: %v", err)
	}
}

func (h *SearchHandler) stream(c *gin.Context) {
	a, s, ok := h.searcher(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("search websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	out := &wsWriter{conn: conn}
	// searches run detached from the upgrade request but inherit its identity
	reqCtx := context.WithoutCancel(c.Request.Context())
	ctrl := search.NewController(a.Schema().Collection, func(ctx context.Context, term string) ([]entity.Record, error) {
		return s.Search(mergeValues(ctx, reqCtx), term)
	}, h.opts.Debounce, func(r search.Results) {
		if r.Err != nil {
			out.send(searchFrame{Type: "error", Seq: r.Seq, Term: r.Term, Message: r.Err.Error()})
			return
		}
		out.send(searchFrame{Type: "results", Seq: r.Seq, Term: r.Term, Results: r.Records})
	})
	defer ctrl.Close()

	for {
		var msg searchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("search websocket read: %v", err)
			}
			return
		}
		switch msg.Type {
		case "input":
			ctrl.Input(msg.Term)
		case "select":
			rec, err := a.Get(reqCtx, msg.ID)
			if err != nil {
				out.send(searchFrame{Type: "error", Message: err.Error()})
				continue
			}
			if rec == nil {
				out.send(searchFrame{Type: "error", Message: apperr.NotFound(a.Schema().Collection, msg.ID).Error()})
				continue
			}
			ctrl.Select(rec)
			out.send(searchFrame{Type: "selected", Selected: rec})
		case "clear":
			ctrl.Clear()
			out.send(searchFrame{Type: "cleared"})
		default:
			out.send(searchFrame{Type: "error", Message: "unknown message type " + msg.Type})
		}
	}
}

// valueCtx cancels with one context and looks values up in another.
type valueCtx struct {
	context.Context
	values context.Context
}

func (v valueCtx) Value(key any) any { return v.values.Value(key) }

func mergeValues(cancel, values context.Context) context.Context {
	return valueCtx{Context: cancel, values: values}
}
