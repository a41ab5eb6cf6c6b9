package lending

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"ethereumIndexer/internal/model"
	"ethereumIndexer/internal/price"
)

// Decode maps a crawler-decoded log onto its lending event. Params are read
// positionally in contract order after checking them against the ABI.
func Decode(ev model.RawLogEvent) (Event, error) {
	name := ev.EventName()
	if !isKind(name) {
		return nil, fmt.Errorf("unsupported event %q", name)
	}

	contract, err := AzraelABI()
	if err != nil {
		return nil, fmt.Errorf("load abi: %w", err)
	}
	abiEvent, ok := contract.Events[name]
	if !ok {
		return nil, fmt.Errorf("event %s missing from abi", name)
	}

	params := ev.Decoded.Params
	if len(params) != len(abiEvent.Inputs) {
		return nil, fmt.Errorf("%s: expected %d params, got %d", name, len(abiEvent.Inputs), len(params))
	}
	for i, input := range abiEvent.Inputs {
		if params[i].Type != "" && params[i].Type != input.Type.String() {
			return nil, fmt.Errorf("%s: param %d (%s) has type %s, want %s",
				name, i, input.Name, params[i].Type, input.Type.String())
		}
	}

	r := &paramReader{params: params}
	meta := EventMeta{TxHash: ev.TxHash, LogOffset: ev.LogOffset}

	var event Event
	switch EventKind(name) {
	case KindLent:
		e := Lent{
			NFTAddress:      r.address(0),
			TokenID:         r.bigint(1),
			LentAmount:      r.uint(2),
			LenderAddress:   r.address(4),
			MaxRentDuration: r.uint(5),
			DailyRentPrice:  r.price(6),
			NFTPrice:        r.price(7),
			IsERC721:        r.bool(8),
			PaymentToken:    r.uint(9),
		}
		meta.ID = r.uint(3)
		e.EventMeta = meta
		event = e
	case KindRented:
		meta.ID = r.uint(0)
		event = Rented{
			EventMeta:     meta,
			RenterAddress: r.address(1),
			RentDuration:  r.uint(2),
			RentedAt:      r.uint(3),
		}
	case KindReturned:
		meta.ID = r.uint(0)
		event = Returned{EventMeta: meta, ReturnedAt: r.uint(1)}
	case KindLendingStopped:
		meta.ID = r.uint(0)
		event = LendingStopped{EventMeta: meta, StoppedAt: r.uint(1)}
	case KindCollateralClaimed:
		meta.ID = r.uint(0)
		event = CollateralClaimed{EventMeta: meta, ClaimedAt: r.uint(1)}
	}

	if r.err != nil {
		return nil, fmt.Errorf("%s: %w", name, r.err)
	}
	return event, nil
}

// paramReader coerces crawler param values and keeps the first failure.
type paramReader struct {
	params []model.DecodedParam
	err    error
}

func (r *paramReader) fail(i int, format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("param %d (%s): %s", i, r.params[i].Name, fmt.Sprintf(format, args...))
	}
}

// text returns the value as written, unquoting JSON strings.
func (r *paramReader) text(i int) string {
	raw := r.params[i].Value
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			r.fail(i, "invalid string: %v", err)
			return ""
		}
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func (r *paramReader) bigint(i int) string {
	s := r.text(i)
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		r.fail(i, "not an unsigned integer: %q", s)
		return ""
	}
	return n.String()
}

func (r *paramReader) uint(i int) uint64 {
	s := r.text(i)
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		r.fail(i, "not an unsigned integer: %q", s)
		return 0
	}
	if !n.IsUint64() {
		r.fail(i, "value %s overflows uint64", s)
		return 0
	}
	return n.Uint64()
}

func (r *paramReader) address(i int) string {
	s := r.text(i)
	if !common.IsHexAddress(s) {
		r.fail(i, "invalid address: %q", s)
		return ""
	}
	return strings.ToLower(common.HexToAddress(s).Hex())
}

func (r *paramReader) bool(i int) bool {
	switch strings.ToLower(r.text(i)) {
	case "true":
		return true
	case "false":
		return false
	default:
		r.fail(i, "not a bool: %s", r.params[i].Value)
		return false
	}
}

func (r *paramReader) price(i int) float64 {
	v, err := price.Unpack(r.text(i))
	if err != nil {
		r.fail(i, "%v", err)
		return 0
	}
	return v
}
