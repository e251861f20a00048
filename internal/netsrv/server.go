package netsrv

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/common"
	"matchcore/internal/exchange"
)

// Core is the subset of exchange.Exchange the server drives. Kept as an
// interface so the server can be tested against a fake exchange.
type Core interface {
	Submit(symbol string, side common.Side, typ common.OrderType, price float64, qty uint64) ([]common.Trade, error)
	Cancel(symbol string, orderID int64) bool
	Subscribe(kind common.EventKind, fn func(common.Event))
}

var _ Core = (*exchange.Exchange)(nil)

// Server accepts TCP connections and translates the wire protocol into
// exchange.Exchange calls. The submitting session gets a synchronous reply
// (one execution report per trade, or an error/terminal report for a
// cancel). In addition, trade and terminal-order notifications are pushed
// to every connected session via an event-bus subscription, off the
// matching hot path, so the submitting session receives both.
type Server struct {
	core     Core
	listener net.Listener

	mu       sync.RWMutex
	sessions map[int64]*session
	nextSess atomic.Int64

	t *tomb.Tomb
}

// NewServer constructs a Server fronting core, and subscribes it to trade
// and terminal order-status events for fan-out to connected sessions.
func NewServer(core Core) *Server {
	s := &Server{
		core:     core,
		sessions: make(map[int64]*session),
		t:        new(tomb.Tomb),
	}
	core.Subscribe(common.EventTrade, s.broadcastTrade)
	core.Subscribe(common.EventOrderFilled, s.broadcastTerminal)
	core.Subscribe(common.EventOrderCancelled, s.broadcastTerminal)
	return s
}

// Serve accepts connections on l until Shutdown is called, each handled by
// its own supervised goroutine.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	s.t.Go(s.acceptLoop)
	return s.t.Wait()
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.t.Dying():
				return nil
			default:
				log.Error().Err(err).Msg("netsrv: accept failed")
				return err
			}
		}
		sess := s.newSession(conn)
		s.t.Go(sess.run)
	}
}

func (s *Server) newSession(conn net.Conn) *session {
	id := s.nextSess.Add(1)
	sess := &session{id: id, conn: conn, core: s.core}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	sess.onClose = func() {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}
	return sess
}

func (s *Server) broadcastTrade(e common.Event) {
	if e.Trade == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.notifyTrade(*e.Trade)
	}
}

func (s *Server) broadcastTerminal(e common.Event) {
	if e.Order == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.notifyTerminal(*e.Order)
	}
}

// Shutdown stops accepting new connections, closes the listener, and
// closes every live session so Serve's Wait returns promptly.
func (s *Server) Shutdown() error {
	s.t.Kill(nil)

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()
	for _, sess := range sessions {
		sess.conn.Close()
	}

	return err
}

// session handles one client connection: it reads length-prefixed
// requests, dispatches them against core, and writes length-prefixed
// reports back, including asynchronous trade/terminal notifications
// pushed from the server's event-bus subscription.
type session struct {
	id      int64
	conn    net.Conn
	core    Core
	writeMu sync.Mutex
	onClose func()
}

func (sess *session) run() error {
	defer sess.close()

	for {
		msg, err := readFrame(sess.conn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			log.Debug().Err(err).Int64("session", sess.id).Msg("netsrv: session read failed")
			return nil
		}
		sess.handle(msg)
	}
}

func (sess *session) handle(msg []byte) {
	if len(msg) < BaseRequestHeaderLen {
		return
	}
	typ := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]

	switch typ {
	case NewOrder:
		req, err := DecodeNewOrder(body)
		if err != nil {
			sess.write(errorReport(uuid.Nil, err))
			return
		}
		sess.handleNewOrder(req)
	case CancelOrder:
		req, err := DecodeCancel(body)
		if err != nil {
			sess.write(errorReport(uuid.Nil, err))
			return
		}
		sess.handleCancel(req)
	default:
		sess.write(errorReport(uuid.Nil, ErrInvalidMessageType))
	}
}

func (sess *session) handleNewOrder(req NewOrderRequest) {
	trades, err := sess.core.Submit(req.Symbol, req.Side, req.Type, req.Price, req.Qty)
	if err != nil {
		sess.write(errorReport(req.RequestID, err))
		return
	}
	for _, t := range trades {
		sess.write(tradeReport(req.RequestID, 0, t, req.Side))
	}
}

func (sess *session) handleCancel(req CancelRequest) {
	if !sess.core.Cancel(req.Symbol, req.OrderID) {
		sess.write(errorReport(req.RequestID, ErrOrderNotResting))
		return
	}
	sess.write(Report{
		Type:      TerminalReport,
		RequestID: req.RequestID,
		OrderID:   req.OrderID,
		Symbol:    req.Symbol,
		Status:    common.Cancelled,
	})
}

func (sess *session) notifyTrade(t common.Trade) {
	sess.write(Report{
		Type:   ExecutionReport,
		Symbol: t.Symbol,
		Price:  t.Price,
		Qty:    t.Quantity,
	})
}

func (sess *session) notifyTerminal(o common.Order) {
	sess.write(Report{
		Type:    TerminalReport,
		OrderID: o.ID,
		Symbol:  o.Symbol,
		Side:    o.Side,
		Status:  o.Status,
		Price:   o.Price,
		Qty:     o.RemainingQty,
	})
}

func (sess *session) write(r Report) {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := writeFrame(sess.conn, r.Serialize()); err != nil {
		log.Debug().Err(err).Int64("session", sess.id).Msg("netsrv: session write failed")
	}
}

func (sess *session) close() {
	sess.conn.Close()
	if sess.onClose != nil {
		sess.onClose()
	}
}

// readFrame reads a 4-byte big-endian length prefix followed by that many
// bytes of payload.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFrame writes payload prefixed with its 4-byte big-endian length.
func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
