package bus

import "fmt"

// ScanPort probes a port at every baud rate the family supports and reports
// which motors answer at which rate, as baud -> id -> model number. The
// transport must not be open yet; the port is closed again before returning.
// Rates where nothing responds are omitted from the result.
func ScanPort(t Transport, f *Family) (map[int]map[int]int, error) {
	if err := t.Open(); err != nil {
		return nil, fmt.Errorf("open port: %w", err)
	}
	defer t.Close()
	t.SetPacketTimeout(f.DefaultTimeout)

	found := make(map[int]map[int]int)
	for _, baud := range f.Baudrates {
		if err := t.SetBaudRate(baud); err != nil {
			return nil, fmt.Errorf("set baud rate %d: %w", baud, err)
		}
		t.Clear()

		motors, comm := t.BroadcastPing()
		if !comm.OK() || len(motors) == 0 {
			continue
		}
		found[baud] = motors
	}
	return found, nil
}
