package common

import "fmt"

// Side of the book an order rests on.
type Side uint8

const (
	Buy Side = iota
	Sell
)

var sideName = map[Side]string{
	Buy:  "buy",
	Sell: "sell",
}

func (s Side) String() string {
	if name, ok := sideName[s]; ok {
		return name
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

type CommandType uint8

const (
	CmdBuy CommandType = iota
	CmdSell
	CmdCancel
)

var commandName = map[CommandType]string{
	CmdBuy:    "buy",
	CmdSell:   "sell",
	CmdCancel: "cancel",
}

func (c CommandType) String() string {
	if name, ok := commandName[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}

// MaxInstrumentLen is the widest instrument symbol the venue carries on the
// wire. Longer symbols are truncated, never rejected.
const MaxInstrumentLen = 8

// Command is a fully parsed client instruction. The transport layer owns
// validation of its shape; by the time a Command reaches the engine it is
// well-typed. A cancel carries only the order identifier; its instrument is
// resolved through the order registry before the instrument book sees it.
type Command struct {
	Type       CommandType
	OrderID    uint32
	Instrument string // required for buy/sell, at most MaxInstrumentLen bytes
	Price      uint32 // venue tick units
	Quantity   uint32
}

// TruncateSymbol clamps a symbol to the wire width.
func TruncateSymbol(symbol string) string {
	if len(symbol) > MaxInstrumentLen {
		return symbol[:MaxInstrumentLen]
	}
	return symbol
}

// InstrumentKey packs the first MaxInstrumentLen ASCII bytes of a symbol into
// a fixed-width integer. The encoding is collision-free for symbols within
// the width limit and is used only for routing.
func InstrumentKey(symbol string) uint64 {
	symbol = TruncateSymbol(symbol)
	var key uint64
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == 0 {
			break
		}
		key = key<<8 | uint64(symbol[i])
	}
	return key
}
