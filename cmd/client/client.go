package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"tyr/internal/common"
	tyrnet "tyr/internal/net"
)

func main() {
	// CLI parameter parsing.
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	action := flag.String("action", "order", "Action to perform: ['order', 'cancel']")

	// Order parameters.
	instrument := flag.String("instrument", "AAPL", "Instrument symbol (max 8 chars)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	id := flag.Uint("id", 1, "Order identifier (32-bit)")
	price := flag.Uint("price", 100, "Limit price in ticks")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	// How long to keep listening for events after sending.
	linger := flag.Duration("linger", 2*time.Second, "Time to wait for events before exiting")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	// Start listening for events (async).
	go readEvents(conn)

	side := common.CmdBuy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.CmdSell
	}

	switch strings.ToLower(*action) {
	case "order":
		orderID := uint32(*id)
		for _, q := range parseQuantities(*qtyStr) {
			frame := tyrnet.EncodeNewOrder(common.Command{
				Type:       side,
				OrderID:    orderID,
				Instrument: *instrument,
				Price:      uint32(*price),
				Quantity:   q,
			})
			if _, err := conn.Write(frame); err != nil {
				log.Fatalf("Failed to send order %d: %v", orderID, err)
			}
			fmt.Printf("-> Sent %s %s %d @ %d (id=%d)\n",
				strings.ToUpper(*sideStr), *instrument, q, *price, orderID)
			orderID++
		}

	case "cancel":
		if _, err := conn.Write(tyrnet.EncodeCancelOrder(uint32(*id))); err != nil {
			log.Fatalf("Failed to send cancel: %v", err)
		}
		fmt.Printf("-> Sent cancel for order %d\n", *id)

	default:
		fmt.Printf("Error: unknown action %q\n", *action)
		flag.Usage()
		os.Exit(1)
	}

	time.Sleep(*linger)
}

// readEvents decodes and prints the server's event stream until the
// connection closes.
func readEvents(conn net.Conn) {
	frame := make([]byte, tyrnet.EventFrameLen)
	for {
		if _, err := io.ReadFull(conn, frame); err != nil {
			if err != io.EOF {
				log.Printf("Event stream closed: %v", err)
			}
			return
		}
		ev, err := tyrnet.ParseEvent(frame)
		if err != nil {
			log.Printf("Bad event frame: %v", err)
			return
		}
		fmt.Printf("<- %+v\n", ev)
	}
}

func parseQuantities(qtyStr string) []uint32 {
	var out []uint32
	for _, part := range strings.Split(qtyStr, ",") {
		q, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil || q == 0 {
			log.Fatalf("Invalid quantity %q", part)
		}
		out = append(out, uint32(q))
	}
	return out
}
