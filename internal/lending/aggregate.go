package lending

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Timestamp is an optional unix time in seconds. The zero value is unset and
// encodes as JSON null.
type Timestamp struct {
	value uint64
	valid bool
}

func At(seconds uint64) Timestamp {
	return Timestamp{value: seconds, valid: true}
}

func (t Timestamp) IsSet() bool { return t.valid }

// Value returns the seconds and whether the timestamp is set.
func (t Timestamp) Value() (uint64, bool) { return t.value, t.valid }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.value)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = At(v)
	return nil
}

type NFT struct {
	Address string `json:"nftAddress"`
	TokenID string `json:"tokenId"`
}

// Lending is the snapshot taken from the Lent event. It never changes afterwards.
type Lending struct {
	LendingID       uint64  `json:"lendingId"`
	LentAmount      uint64  `json:"lentAmount"`
	MaxRentDuration uint64  `json:"maxRentDuration"`
	PaymentToken    uint64  `json:"paymentToken"`
	LenderAddress   string  `json:"lendersAddress"`
	DailyRentPrice  float64 `json:"dailyRentPrice"`
	NFTPrice        float64 `json:"nftPrice"`
	IsERC721        bool    `json:"isERC721"`
}

type Renting struct {
	RenterAddress string    `json:"renterAddress"`
	RentDuration  uint64    `json:"rentDuration"`
	RentedAt      uint64    `json:"rentedAt"`
	ReturnedAt    Timestamp `json:"returnedAt"`
}

// Closed reports whether the renting has been returned.
func (r Renting) Closed() bool { return r.ReturnedAt.IsSet() }

// LendingRenting is the materialized state of one lending id.
type LendingRenting struct {
	ID                  uint64    `json:"_id"`
	NFT                 NFT       `json:"nft"`
	Lending             Lending   `json:"lending"`
	StoppedAt           Timestamp `json:"stoppedAt"`
	CollateralClaimedAt Timestamp `json:"collateralClaimedAt"`
	Rentings            []Renting `json:"rentings"`
}

// NewLendingRenting creates the aggregate for a Lent event.
func NewLendingRenting(e Lent) *LendingRenting {
	return &LendingRenting{
		ID: e.LendingID(),
		NFT: NFT{
			Address: e.NFTAddress,
			TokenID: e.TokenID,
		},
		Lending: Lending{
			LendingID:       e.LendingID(),
			LentAmount:      e.LentAmount,
			MaxRentDuration: e.MaxRentDuration,
			PaymentToken:    e.PaymentToken,
			LenderAddress:   e.LenderAddress,
			DailyRentPrice:  e.DailyRentPrice,
			NFTPrice:        e.NFTPrice,
			IsERC721:        e.IsERC721,
		},
		Rentings: []Renting{},
	}
}

func (lr *LendingRenting) UnmarshalJSON(data []byte) error {
	type plain LendingRenting
	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out.Rentings == nil {
		out.Rentings = []Renting{}
	}
	*lr = LendingRenting(out)
	return nil
}
