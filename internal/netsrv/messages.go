// Package netsrv is the outer demonstration/wire layer fronting the
// exchange.Exchange facade with a small binary TCP protocol. It is not
// part of the matching core: the core's only contract is the facade
// (internal/exchange); this package is one possible driver of it.
package netsrv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"matchcore/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("netsrv: invalid message type")
	ErrMessageTooShort    = errors.New("netsrv: message too short")
	ErrOrderNotResting    = errors.New("netsrv: no resting order with that id")
)

// MessageType tags an inbound client request.
type MessageType uint16

const (
	NewOrder MessageType = iota
	CancelOrder
)

// ReportMessageType tags an outbound server response.
type ReportMessageType uint8

const (
	ExecutionReport ReportMessageType = iota
	TerminalReport
	ErrorReport
)

// Wire layout.
const (
	reqIDLen = 16 // uuid bytes

	// BaseRequestHeaderLen: 2 (type)
	BaseRequestHeaderLen = 2

	// newOrderFixedLen: reqID(16) + side(1) + type(1) + price(8) + qty(8)
	// + symbolLen(1), followed by [symbol]
	newOrderFixedLen = reqIDLen + 1 + 1 + 8 + 8 + 1

	// cancelFixedLen: reqID(16) + orderID(8) + symbolLen(1), followed by
	// [symbol]
	cancelFixedLen = reqIDLen + 8 + 1
)

// NewOrderRequest is a client's order submission.
type NewOrderRequest struct {
	RequestID uuid.UUID
	Symbol    string
	Side      common.Side
	Type      common.OrderType
	Price     float64
	Qty       uint64
}

// CancelRequest is a client's cancellation request.
type CancelRequest struct {
	RequestID uuid.UUID
	Symbol    string
	OrderID   int64
}

// EncodeNewOrder serializes a NewOrderRequest for the wire.
func EncodeNewOrder(r NewOrderRequest) []byte {
	symbol := []byte(r.Symbol)
	total := BaseRequestHeaderLen + newOrderFixedLen + len(symbol)
	buf := make([]byte, total)

	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	off := 2
	copy(buf[off:off+reqIDLen], r.RequestID[:])
	off += reqIDLen
	buf[off] = byte(r.Side)
	off++
	buf[off] = byte(r.Type)
	off++
	binary.BigEndian.PutUint64(buf[off:off+8], math.Float64bits(r.Price))
	off += 8
	binary.BigEndian.PutUint64(buf[off:off+8], r.Qty)
	off += 8
	buf[off] = byte(len(symbol))
	off++
	copy(buf[off:], symbol)

	return buf
}

// DecodeNewOrder parses a NewOrderRequest from msg, which must already
// have the 2-byte message-type header stripped.
func DecodeNewOrder(msg []byte) (NewOrderRequest, error) {
	if len(msg) < newOrderFixedLen {
		return NewOrderRequest{}, ErrMessageTooShort
	}
	var r NewOrderRequest
	copy(r.RequestID[:], msg[0:reqIDLen])
	off := reqIDLen
	r.Side = common.Side(msg[off])
	off++
	r.Type = common.OrderType(msg[off])
	off++
	r.Price = math.Float64frombits(binary.BigEndian.Uint64(msg[off : off+8]))
	off += 8
	r.Qty = binary.BigEndian.Uint64(msg[off : off+8])
	off += 8
	symLen := int(msg[off])
	off++
	if len(msg) < off+symLen {
		return NewOrderRequest{}, ErrMessageTooShort
	}
	r.Symbol = string(msg[off : off+symLen])
	return r, nil
}

// EncodeCancel serializes a CancelRequest for the wire.
func EncodeCancel(r CancelRequest) []byte {
	symbol := []byte(r.Symbol)
	total := BaseRequestHeaderLen + cancelFixedLen + len(symbol)
	buf := make([]byte, total)

	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	off := 2
	copy(buf[off:off+reqIDLen], r.RequestID[:])
	off += reqIDLen
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(r.OrderID))
	off += 8
	buf[off] = byte(len(symbol))
	off++
	copy(buf[off:], symbol)

	return buf
}

// DecodeCancel parses a CancelRequest from msg, header already stripped.
func DecodeCancel(msg []byte) (CancelRequest, error) {
	if len(msg) < cancelFixedLen {
		return CancelRequest{}, ErrMessageTooShort
	}
	var r CancelRequest
	copy(r.RequestID[:], msg[0:reqIDLen])
	off := reqIDLen
	r.OrderID = int64(binary.BigEndian.Uint64(msg[off : off+8]))
	off += 8
	symLen := int(msg[off])
	off++
	if len(msg) < off+symLen {
		return CancelRequest{}, ErrMessageTooShort
	}
	r.Symbol = string(msg[off : off+symLen])
	return r, nil
}

// Report is an outbound response: an execution (trade), a terminal order
// status, or an error.
type Report struct {
	Type      ReportMessageType
	RequestID uuid.UUID
	OrderID   int64
	Symbol    string
	Side      common.Side
	Status    common.Status
	Price     float64
	Qty       uint64
	Err       string
}

const reportFixedLen = 1 + 16 + 8 + 1 + 1 + 8 + 8 + 4 // type+reqID+orderID+side+status+price+qty+errLen

// Serialize converts a Report to its wire form.
func (r Report) Serialize() []byte {
	errBytes := []byte(r.Err)
	symBytes := []byte(r.Symbol)
	buf := make([]byte, reportFixedLen+len(errBytes)+len(symBytes)+1)

	buf[0] = byte(r.Type)
	off := 1
	copy(buf[off:off+reqIDLen], r.RequestID[:])
	off += reqIDLen
	binary.BigEndian.PutUint64(buf[off:off+8], uint64(r.OrderID))
	off += 8
	buf[off] = byte(r.Side)
	off++
	buf[off] = byte(r.Status)
	off++
	binary.BigEndian.PutUint64(buf[off:off+8], math.Float64bits(r.Price))
	off += 8
	binary.BigEndian.PutUint64(buf[off:off+8], r.Qty)
	off += 8
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(errBytes)))
	off += 4
	buf[off] = byte(len(symBytes))
	off++
	copy(buf[off:], symBytes)
	off += len(symBytes)
	copy(buf[off:], errBytes)

	return buf
}

func tradeReport(reqID uuid.UUID, owner int64, t common.Trade, side common.Side) Report {
	return Report{
		Type:      ExecutionReport,
		RequestID: reqID,
		OrderID:   owner,
		Symbol:    t.Symbol,
		Side:      side,
		Price:     t.Price,
		Qty:       t.Quantity,
	}
}

func errorReport(reqID uuid.UUID, err error) Report {
	return Report{Type: ErrorReport, RequestID: reqID, Err: fmt.Sprintf("%v", err)}
}
