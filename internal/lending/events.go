package lending

// EventKind names a lending contract event.
type EventKind string

const (
	KindLent              EventKind = "Lent"
	KindRented            EventKind = "Rented"
	KindReturned          EventKind = "Returned"
	KindLendingStopped    EventKind = "LendingStopped"
	KindCollateralClaimed EventKind = "CollateralClaimed"
)

// Kinds lists the events the lending transformer consumes.
var Kinds = []EventKind{KindLent, KindRented, KindReturned, KindLendingStopped, KindCollateralClaimed}

func isKind(name string) bool {
	for _, kind := range Kinds {
		if string(kind) == name {
			return true
		}
	}
	return false
}

// Event is one decoded lending event. The set of implementations is closed;
// every implementation is a comparable value so events can key a map.
type Event interface {
	Kind() EventKind
	LendingID() uint64
	Meta() EventMeta
	sealed()
}

// EventMeta identifies the log an event came from and the lending it targets.
type EventMeta struct {
	TxHash    string
	LogOffset uint64
	ID        uint64
}

func (m EventMeta) LendingID() uint64 { return m.ID }
func (m EventMeta) Meta() EventMeta   { return m }

type Lent struct {
	EventMeta
	NFTAddress      string
	TokenID         string
	LentAmount      uint64
	LenderAddress   string
	MaxRentDuration uint64
	DailyRentPrice  float64
	NFTPrice        float64
	IsERC721        bool
	PaymentToken    uint64
}

type Rented struct {
	EventMeta
	RenterAddress string
	RentDuration  uint64
	RentedAt      uint64
}

type Returned struct {
	EventMeta
	ReturnedAt uint64
}

type LendingStopped struct {
	EventMeta
	StoppedAt uint64
}

type CollateralClaimed struct {
	EventMeta
	ClaimedAt uint64
}

func (Lent) Kind() EventKind              { return KindLent }
func (Rented) Kind() EventKind            { return KindRented }
func (Returned) Kind() EventKind          { return KindReturned }
func (LendingStopped) Kind() EventKind    { return KindLendingStopped }
func (CollateralClaimed) Kind() EventKind { return KindCollateralClaimed }

func (Lent) sealed()              {}
func (Rented) sealed()            {}
func (Returned) sealed()          {}
func (LendingStopped) sealed()    {}
func (CollateralClaimed) sealed() {}
