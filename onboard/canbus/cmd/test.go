// Command test dumps frames seen on a CAN interface, optionally sending one
// frame first, e.g. `test -i can0 -send 141#9400000000000000`.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CodedInternet/canmotor/onboard/canbus"
)

func parseFrame(s string) (id uint32, data []byte, err error) {
	parts := strings.SplitN(s, "#", 2)
	if len(parts) != 2 {
		return 0, nil, fmt.Errorf("frame %q is not in id#data form", s)
	}

	id64, err := strconv.ParseUint(parts[0], 16, 32)
	if err != nil {
		return 0, nil, err
	}

	data, err = hex.DecodeString(parts[1])
	if err != nil {
		return 0, nil, err
	}
	if len(data) > 8 {
		return 0, nil, canbus.ERR_DATA_TOO_LONG
	}

	return uint32(id64), data, nil
}

func main() {
	ifname := flag.String("i", "can0", "CAN interface to open")
	send := flag.String("send", "", "frame to send before listening, id#hexdata")
	duration := flag.Duration("d", time.Second, "how long to listen for")
	flag.Parse()

	fmt.Printf("Opening listener on %s\n", *ifname)
	bus, err := canbus.NewCANBus(*ifname)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer bus.Close()

	if *send != "" {
		id, data, err := parseFrame(*send)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if !bus.Send(id, data) {
			fmt.Fprintln(os.Stderr, "send failed")
		}
	}

	deadline := time.Now().Add(*duration)
	for time.Now().Before(deadline) {
		msg, ok := bus.Receive(time.Until(deadline))
		if !ok {
			continue
		}

		fmt.Println(msg)
	}
}
