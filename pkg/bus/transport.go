package bus

import "time"

// CommStatus is the result code of a bus transaction, as reported by the
// transport. Zero means the transaction round-tripped; negative values
// describe how it failed.
type CommStatus int

// Communication results.
const (
	CommSuccess   CommStatus = 0
	CommPortBusy  CommStatus = -1
	CommTxFail    CommStatus = -2
	CommRxFail    CommStatus = -3
	CommTxError   CommStatus = -4
	CommRxWaiting CommStatus = -5
	CommRxTimeout CommStatus = -6
	CommRxCorrupt CommStatus = -7
	CommNotAvail  CommStatus = -9
)

// OK reports whether the transaction completed.
func (c CommStatus) OK() bool {
	return c == CommSuccess
}

// Transport is the vendor-specific wire layer a Bus drives. Implementations
// own the packet framing and the physical port; the bus owns addressing,
// retries, calibration and normalization.
//
// A transaction outcome is split in two: the CommStatus says whether the
// packet round-tripped at all, while the error code (0 = none) is a fault the
// motor itself reported despite a successful round trip. Values cross this
// boundary as raw unsigned register words; any sign convention is applied
// above, by the family's value codec.
type Transport interface {
	// Port lifecycle.
	Open() error
	Close() error
	// Clear discards any stale buffered input on the port.
	Clear() error

	BaudRate() int
	SetBaudRate(baud int) error
	// SetPacketTimeout bounds every subsequent transaction. The bus itself
	// never imposes deadlines; this is the only timing knob.
	SetPacketTimeout(timeout time.Duration)

	// Ping verifies a single motor and returns its model number.
	Ping(id int) (modelNumber int, comm CommStatus, errCode int)
	// BroadcastPing discovers all motors on the bus, returning the model
	// number reported by each responding id.
	BroadcastPing() (map[int]int, CommStatus)

	// Single-motor register access. Length is 1, 2 or 4 bytes.
	Read(id, address, length int) (value int, comm CommStatus, errCode int)
	Write(id, address, length int, data []byte) (comm CommStatus, errCode int)

	// Group transactions against a shared (address, length) window.
	SyncRead(address, length int, ids []int) (map[int]int, CommStatus)
	SyncWrite(address, length int, data map[int][]byte) CommStatus

	// Diagnostic text for result codes, in the vendor's wording.
	CommText(comm CommStatus) string
	ErrorText(errCode int) string
}
