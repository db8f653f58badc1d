package net

import (
	"encoding/binary"
	"errors"
	"strings"

	"tyr/internal/common"
	"tyr/internal/events"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrInvalidSide        = errors.New("invalid order side")
	ErrMessageTooShort    = errors.New("message too short for its type")
	ErrZeroQuantity       = errors.New("order quantity must be positive")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

// Message format constants. All integers are big-endian.
const (
	BaseMessageHeaderLen = 2                  // u16 message type
	NewOrderBodyLen      = 1 + 4 + 8 + 4 + 4 // side, order id, instrument, price, quantity
	CancelOrderBodyLen   = 4                  // order id
)

const (
	sideWireBuy  = 0
	sideWireSell = 1
)

// bodyLen returns the fixed body size for a message type so the session can
// frame its reads.
func bodyLen(typeOf MessageType) (int, error) {
	switch typeOf {
	case Heartbeat:
		return 0, nil
	case NewOrder:
		return NewOrderBodyLen, nil
	case CancelOrder:
		return CancelOrderBodyLen, nil
	default:
		return 0, ErrInvalidMessageType
	}
}

// parseCommand decodes one framed message body into an engine command.
// Heartbeats yield ok=false and no command.
func parseCommand(typeOf MessageType, body []byte) (common.Command, bool, error) {
	switch typeOf {
	case Heartbeat:
		return common.Command{}, false, nil
	case NewOrder:
		cmd, err := parseNewOrder(body)
		return cmd, err == nil, err
	case CancelOrder:
		cmd, err := parseCancelOrder(body)
		return cmd, err == nil, err
	default:
		return common.Command{}, false, ErrInvalidMessageType
	}
}

func parseNewOrder(body []byte) (common.Command, error) {
	if len(body) < NewOrderBodyLen {
		return common.Command{}, ErrMessageTooShort
	}

	var typeOf common.CommandType
	switch body[0] {
	case sideWireBuy:
		typeOf = common.CmdBuy
	case sideWireSell:
		typeOf = common.CmdSell
	default:
		return common.Command{}, ErrInvalidSide
	}

	cmd := common.Command{
		Type:       typeOf,
		OrderID:    binary.BigEndian.Uint32(body[1:5]),
		Instrument: decodeInstrument(body[5:13]),
		Price:      binary.BigEndian.Uint32(body[13:17]),
		Quantity:   binary.BigEndian.Uint32(body[17:21]),
	}
	if cmd.Quantity == 0 {
		return common.Command{}, ErrZeroQuantity
	}
	return cmd, nil
}

func parseCancelOrder(body []byte) (common.Command, error) {
	if len(body) < CancelOrderBodyLen {
		return common.Command{}, ErrMessageTooShort
	}
	return common.Command{
		Type:    common.CmdCancel,
		OrderID: binary.BigEndian.Uint32(body[0:4]),
	}, nil
}

// decodeInstrument strips the NUL padding of the fixed-width symbol field.
func decodeInstrument(raw []byte) string {
	return strings.TrimRight(string(raw), "\x00")
}

func encodeInstrument(symbol string) [common.MaxInstrumentLen]byte {
	var out [common.MaxInstrumentLen]byte
	copy(out[:], common.TruncateSymbol(symbol))
	return out
}

// EncodeNewOrder builds a NewOrder frame, used by the client.
func EncodeNewOrder(cmd common.Command) []byte {
	buf := make([]byte, BaseMessageHeaderLen+NewOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	if cmd.Type == common.CmdSell {
		buf[2] = sideWireSell
	}
	binary.BigEndian.PutUint32(buf[3:7], cmd.OrderID)
	instr := encodeInstrument(cmd.Instrument)
	copy(buf[7:15], instr[:])
	binary.BigEndian.PutUint32(buf[15:19], cmd.Price)
	binary.BigEndian.PutUint32(buf[19:23], cmd.Quantity)
	return buf
}

// EncodeCancelOrder builds a CancelOrder frame, used by the client.
func EncodeCancelOrder(orderID uint32) []byte {
	buf := make([]byte, BaseMessageHeaderLen+CancelOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint32(buf[2:6], orderID)
	return buf
}

// --- Event frames (server -> client) ----------------------------------------

type EventKind uint8

const (
	EventOrderAdded EventKind = iota
	EventOrderExecuted
	EventOrderDeleted
)

const (
	eventFlagSet = 1 // is_sell on added, accepted on deleted

	// kind u8, flags u8, instrument 8 bytes, five u32 fields, i64 timestamp.
	EventFrameLen = 1 + 1 + 8 + 5*4 + 8
)

// SerializeEvent packs one event into a fixed-width wire frame. Field use by
// kind:
//
//	added:    f0=order id, f1=price, f2=quantity, flags=is_sell
//	executed: f0=resting id, f1=incoming id, f2=execution id, f3=price, f4=quantity
//	deleted:  f0=order id, flags=accepted
func SerializeEvent(ev events.Event) ([]byte, error) {
	buf := make([]byte, EventFrameLen)
	var fields [5]uint32

	switch ev.Kind {
	case events.KindAdded:
		buf[0] = byte(EventOrderAdded)
		if ev.IsSell {
			buf[1] = eventFlagSet
		}
		fields = [5]uint32{ev.OrderID, ev.Price, ev.Quantity, 0, 0}
	case events.KindExecuted:
		buf[0] = byte(EventOrderExecuted)
		fields = [5]uint32{ev.RestingID, ev.IncomingID, ev.ExecutionID, ev.Price, ev.Quantity}
	case events.KindDeleted:
		buf[0] = byte(EventOrderDeleted)
		if ev.Accepted {
			buf[1] = eventFlagSet
		}
		fields = [5]uint32{ev.OrderID, 0, 0, 0, 0}
	default:
		return nil, ErrInvalidMessageType
	}

	instr := encodeInstrument(ev.Instrument)
	copy(buf[2:10], instr[:])
	for i, f := range fields {
		binary.BigEndian.PutUint32(buf[10+4*i:], f)
	}
	binary.BigEndian.PutUint64(buf[30:38], uint64(ev.Timestamp))
	return buf, nil
}

// ParseEvent is the inverse of SerializeEvent, used by the client.
func ParseEvent(frame []byte) (events.Event, error) {
	if len(frame) < EventFrameLen {
		return events.Event{}, ErrMessageTooShort
	}

	flag := frame[1] == eventFlagSet
	var fields [5]uint32
	for i := range fields {
		fields[i] = binary.BigEndian.Uint32(frame[10+4*i:])
	}
	ts := int64(binary.BigEndian.Uint64(frame[30:38]))

	switch EventKind(frame[0]) {
	case EventOrderAdded:
		return events.Event{
			Kind:       events.KindAdded,
			OrderID:    fields[0],
			Instrument: decodeInstrument(frame[2:10]),
			Price:      fields[1],
			Quantity:   fields[2],
			IsSell:     flag,
			Timestamp:  ts,
		}, nil
	case EventOrderExecuted:
		return events.Event{
			Kind:        events.KindExecuted,
			RestingID:   fields[0],
			IncomingID:  fields[1],
			ExecutionID: fields[2],
			Price:       fields[3],
			Quantity:    fields[4],
			Timestamp:   ts,
		}, nil
	case EventOrderDeleted:
		return events.Event{
			Kind:      events.KindDeleted,
			OrderID:   fields[0],
			Accepted:  flag,
			Timestamp: ts,
		}, nil
	default:
		return events.Event{}, ErrInvalidMessageType
	}
}
